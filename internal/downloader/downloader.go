// Package downloader fetches and extracts product archives idempotently,
// writing a metadata.json alongside every extracted product.
package downloader

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"satcoverage/internal/logger"
)

// Metadata is written alongside every downloaded product.
type Metadata struct {
	ProductName           string    `json:"product_name"`
	ODataID               string    `json:"odata_id"`
	CloudCoverPercentage  float64   `json:"cloud_cover_percentage"`
	RetrievedAt           time.Time `json:"retrieved_at"`
	QualityScore          float64   `json:"quality_score"`
	AOICoveragePercentage float64   `json:"aoi_coverage_percentage"`
}

// Request bundles the selection-layer output a single download needs.
type Request struct {
	ProductID   string
	ProductName string
	DownloadURL string
	OutputDir   string
	Metadata    Metadata
}

// Download fetches and extracts one product into outputDir/productName.
// A prior successful download (valid metadata.json with a matching
// product_name) is a no-op; a leftover .zip is extracted without
// re-fetching.
func Download(ctx context.Context, httpClient *http.Client, bearerToken string, req Request) error {
	productDir := filepath.Join(req.OutputDir, req.ProductName)
	if req.Metadata.ProductName == "" {
		req.Metadata.ProductName = req.ProductName
	}

	if existing, ok := readMetadata(productDir); ok && existing.ProductName == req.ProductName {
		logger.Info("downloader", fmt.Sprintf("%s already present, skipping", req.ProductName))
		return nil
	}

	zipPath := filepath.Join(req.OutputDir, req.ProductName+".zip")
	if _, err := os.Stat(zipPath); err == nil {
		if err := extractAndClean(zipPath, productDir); err != nil {
			return fmt.Errorf("downloader: extract existing archive: %w", err)
		}
		return writeMetadata(productDir, req.Metadata)
	}

	if err := fetchArchive(ctx, httpClient, bearerToken, req.DownloadURL, zipPath); err != nil {
		return fmt.Errorf("downloader: fetch %s: %w", req.ProductName, err)
	}
	if err := extractAndClean(zipPath, productDir); err != nil {
		return fmt.Errorf("downloader: extract %s: %w", req.ProductName, err)
	}
	return writeMetadata(productDir, req.Metadata)
}

func fetchArchive(ctx context.Context, client *http.Client, bearerToken, url, destZip string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return err
	}
	logger.Info("downloader", fmt.Sprintf("downloaded %s (%s)", filepath.Base(destZip), humanize.Bytes(uint64(written))))
	return nil
}

func extractAndClean(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		target, err := safeExtractPath(destDir, f.Name)
		if err != nil {
			return fmt.Errorf("downloader: %w", err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return os.Remove(zipPath)
}

// safeExtractPath joins name onto destDir and rejects any archive entry
// whose cleaned path would escape destDir (zip-slip).
func safeExtractPath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if target != destDir && !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal archive entry path %q", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func readMetadata(productDir string) (Metadata, bool) {
	data, err := os.ReadFile(filepath.Join(productDir, "metadata.json"))
	if err != nil {
		return Metadata{}, false
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, false
	}
	return m, true
}

func writeMetadata(productDir string, m Metadata) error {
	if m.RetrievedAt.IsZero() {
		m.RetrievedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(productDir, "metadata.json"), data, 0o644)
}

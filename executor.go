package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"satcoverage/internal/aoi"
	"satcoverage/internal/catalog"
	"satcoverage/internal/config"
	"satcoverage/internal/coverage"
	"satcoverage/internal/coverage/milp"
	"satcoverage/internal/downloader"
	"satcoverage/internal/logger"
	"satcoverage/internal/runlog"
)

const zipperURLTemplate = "https://zipper.dataspace.copernicus.eu/odata/v1/Products(%s)/$value"

// jobExecutor wires the catalog client, coverage engine, downloader, and
// run ledger together into the per-job pipeline:
// fetch -> filter -> score -> dispatch -> download -> record.
type jobExecutor struct {
	catalog     *catalog.Client
	httpClient  *http.Client
	bearerToken string
	milpBackend milp.Backend
	ledger      *runlog.DB
}

func newJobExecutor(catalogClient *catalog.Client, httpClient *http.Client, bearerToken string, backend milp.Backend, ledger *runlog.DB) *jobExecutor {
	return &jobExecutor{
		catalog:     catalogClient,
		httpClient:  httpClient,
		bearerToken: bearerToken,
		milpBackend: backend,
		ledger:      ledger,
	}
}

// run executes one CollectionJobConfig end to end and records its outcome
// in the run ledger. A per-product download failure never aborts the batch;
// only a job that downloads zero of N selected products, or fails before
// candidates exist, returns an error.
func (e *jobExecutor) run(ctx context.Context, job config.CollectionJobConfig) error {
	runID, err := e.ledger.Start(job.Name, job.AutoSelect.Strategy)
	if err != nil {
		logger.Warn("executor", fmt.Sprintf("failed to record run start for %s: %v", job.Name, err))
	}

	wgsGeom, err := aoi.Load(job.AOIPath)
	if err != nil {
		return e.fail(runID, job, coverage.KindAOILoadFailed, fmt.Errorf("load aoi: %w", err))
	}
	projectedAOI, proj, err := aoi.Project(wgsGeom)
	if err != nil {
		return e.fail(runID, job, coverage.KindAOILoadFailed, fmt.Errorf("project aoi: %w", err))
	}
	aoiWKT, err := aoi.ToWKT(wgsGeom)
	if err != nil {
		return e.fail(runID, job, coverage.KindAOILoadFailed, fmt.Errorf("render aoi wkt: %w", err))
	}

	start, end := job.DateRange.Resolve(time.Now())
	records, err := e.catalog.Fetch(ctx, catalog.Query{
		AOIWKT:        aoiWKT,
		Start:         start,
		End:           end,
		MaxCloudCover: job.Filters.MaxCloudCover,
		ProductType:   productTypeFor(job.Filters.ProductLevel),
	})
	if err != nil {
		return e.fail(runID, job, coverage.KindCatalogFetchFailed, fmt.Errorf("catalog fetch: %w", err))
	}

	raw := make([]coverage.RawProduct, 0, len(records))
	for _, rec := range records {
		footprintWKT, err := aoi.ReprojectFootprintWKT(rec.FootprintWKT, proj)
		if err != nil {
			logger.Warn("executor", fmt.Sprintf("skipping product %s: %v", rec.ID, err))
			continue
		}
		raw = append(raw, coverage.RawProduct{
			ID:                rec.ID,
			Name:              rec.Name,
			ContentLength:     rec.ContentLength,
			SensingDate:       rec.SensingStart,
			FootprintWKT:      footprintWKT,
			CloudCoverPercent: rec.CloudCoverPercent,
			ProductType:       rec.ProductType,
		})
	}

	run := coverage.RunPipeline(
		raw,
		coverage.AOI{Polygon: projectedAOI, AreaM2: projectedAOI.Area()},
		coverage.FilterParams{
			MaxCloudCover:         job.Filters.MaxCloudCover,
			MinAOICoveragePercent: job.Filters.MinAOICoverage,
			MinContentLengthBytes: coverage.DefaultMinContentLengthBytes,
			ProductLevel:          job.Filters.ProductLevel,
			RequestedRangeCenter:  start.Add(end.Sub(start) / 2),
		},
		coverage.ScoreWeights{
			AOI:     job.AutoSelect.AOICoverageWeight,
			Cloud:   job.AutoSelect.CloudCoverWeight,
			Recency: job.AutoSelect.RecencyWeight,
		},
		coverage.DispatchParams{
			Strategy:             strategyFromName(job.AutoSelect.Strategy),
			MaxProducts:          job.AutoSelect.MaxProducts,
			QualityThreshold:     job.AutoSelect.QualityThreshold,
			MinCoverageFraction:  job.AutoSelect.MinCoverageFraction,
			GridSpacingMeters:    job.AutoSelect.GridSpacingMeters,
			CloudWeight:          job.AutoSelect.CoverageCloudWeight,
			QualityWeight:        job.AutoSelect.CoverageQualityWeight,
			SolverTimeoutSeconds: job.AutoSelect.SolverTimeoutSeconds,
			Backend:              e.milpBackend,
		},
	)

	if run.State == coverage.StateNoCandidates {
		logger.Info("executor", fmt.Sprintf("job %s: no candidates survived filtering", job.Name))
		e.finish(runID, job, run, 0, nil)
		return nil
	}

	downloaded, downloadErrs := e.downloadAll(ctx, job, run.Products)
	e.finish(runID, job, run, downloaded, downloadErrs)

	if len(run.Products) > 0 && downloaded == 0 {
		return fmt.Errorf("job %s: downloaded 0 of %d selected products", job.Name, len(run.Products))
	}
	return nil
}

// downloadAll fetches every selected product, accumulating per-product
// failures instead of aborting the batch.
func (e *jobExecutor) downloadAll(ctx context.Context, job config.CollectionJobConfig, products []coverage.ProcessedProduct) (int, []error) {
	var errs []error
	downloaded := 0
	for _, p := range products {
		req := downloader.Request{
			ProductID:   p.ID,
			ProductName: p.Name,
			DownloadURL: fmt.Sprintf(zipperURLTemplate, p.ID),
			OutputDir:   job.OutputDir,
			Metadata: downloader.Metadata{
				ProductName:           p.Name,
				ODataID:               p.ID,
				CloudCoverPercentage:  p.CloudCover,
				QualityScore:          p.QualityScore,
				AOICoveragePercentage: p.AOICoverage,
			},
		}
		if err := downloader.Download(ctx, e.httpClient, e.bearerToken, req); err != nil {
			logger.Error("executor", fmt.Sprintf("download %s failed: %v", p.Name, err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		downloaded++
	}
	return downloaded, errs
}

func (e *jobExecutor) fail(runID string, job config.CollectionJobConfig, kind coverage.Kind, cause error) error {
	cerr := coverage.NewError(kind, fmt.Sprintf("job %s failed", job.Name), cause)
	if runID != "" {
		e.ledger.Finish(runID, runlog.Run{Strategy: job.AutoSelect.Strategy, Success: false, Message: cerr.Error()})
	}
	return cerr
}

func (e *jobExecutor) finish(runID string, job config.CollectionJobConfig, run *coverage.Run, downloaded int, downloadErrs []error) {
	if runID == "" {
		return
	}
	rec := runlog.Run{
		Strategy:      job.AutoSelect.Strategy,
		NumCandidates: len(run.Products),
		NumSelected:   len(run.Products),
		Success:       true,
	}
	if run.Result.Coverage != nil {
		rec.SolverType = run.Result.Coverage.SolverType
		cf := run.Result.Coverage.CoverageFraction
		rec.CoverageFraction = &cf
		rec.NumCandidates = run.Result.Coverage.NumCandidates
		rec.NumSelected = run.Result.Coverage.NumSelected
	}
	if len(run.Products) > 0 {
		rec.Message = fmt.Sprintf("downloaded %d/%d products", downloaded, len(run.Products))
		if downloaded == 0 {
			rec.Success = false
		}
	}
	if len(downloadErrs) > 0 {
		rec.Message = fmt.Sprintf("%s (%d download errors)", rec.Message, len(downloadErrs))
	}
	if err := e.ledger.Finish(runID, rec); err != nil {
		logger.Warn("executor", fmt.Sprintf("failed to record run finish for %s: %v", job.Name, err))
	}
}

func productTypeFor(level string) string {
	if level == "L1C" {
		return "S2MSI1C"
	}
	return "S2MSI2A"
}

func strategyFromName(name string) coverage.Strategy {
	switch name {
	case "all_above_threshold":
		return coverage.StrategyAllAboveThreshold
	case "best_per_week":
		return coverage.StrategyBestPerWeek
	case "coverage_greedy":
		return coverage.StrategyCoverageGreedy
	case "coverage_optimal":
		return coverage.StrategyCoverageOptimal
	default:
		return coverage.StrategyBestN
	}
}

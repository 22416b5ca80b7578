package coverage

import (
	"math"

	"satcoverage/internal/geometry"
	"satcoverage/internal/logger"
)

// FilterCandidates applies the hard pre-filter predicates to a batch of raw
// catalog products, returning the survivors as ProcessedProduct.
// Records with unparseable or empty footprint geometry are logged and
// skipped; the batch itself never fails.
func FilterCandidates(raw []RawProduct, aoi geometry.Polygon, params FilterParams) []ProcessedProduct {
	aoiArea := aoi.Area()
	out := make([]ProcessedProduct, 0, len(raw))

	for _, r := range raw {
		footprint, err := parseFootprint(r.FootprintWKT)
		if err != nil || footprint.Empty() {
			logger.Warn("coverage", "skipping product "+r.ID+": invalid or missing footprint")
			continue
		}

		if r.ContentLength < params.MinContentLengthBytes {
			continue
		}
		if r.CloudCoverPercent > params.MaxCloudCover {
			continue
		}
		if want := productTypeForLevel(params.ProductLevel); want != "" && r.ProductType != "" && r.ProductType != want {
			continue
		}

		aoiCoveragePct := 0.0
		if aoiArea > 0 {
			aoiCoveragePct = 100 * geometry.IntersectionArea(aoi, footprint) / aoiArea
		}
		if aoiCoveragePct < params.MinAOICoveragePercent {
			continue
		}

		dateDiff := math.Abs(r.SensingDate.Sub(params.RequestedRangeCenter).Hours() / 24)

		out = append(out, ProcessedProduct{
			Index:         len(out),
			Name:          r.Name,
			ID:            r.ID,
			CloudCover:    clamp(r.CloudCoverPercent, 0, 100),
			AOICoverage:   aoiCoveragePct,
			DateDiffDays:  dateDiff,
			SensingDate:   r.SensingDate,
			ContentLength: r.ContentLength,
			Footprint:     footprint,
		})
	}
	return out
}

// productTypeForLevel maps a processing level to its Sentinel-2 product
// type. The catalog query already filters on it server-side; this guards
// against records that slip through mixed-collection responses.
func productTypeForLevel(level string) string {
	switch level {
	case "L1C":
		return "S2MSI1C"
	case "L2A":
		return "S2MSI2A"
	default:
		return ""
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

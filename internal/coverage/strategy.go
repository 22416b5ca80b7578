package coverage

import (
	"fmt"
	"sort"

	"satcoverage/internal/coverage/milp"
	"satcoverage/internal/geometry"
	"satcoverage/internal/logger"
)

// Strategy selects one of the five product-selection paths.
type Strategy int

const (
	StrategyBestN Strategy = iota
	StrategyAllAboveThreshold
	StrategyBestPerWeek
	StrategyCoverageGreedy
	StrategyCoverageOptimal
)

// DispatchParams bundles everything a strategy run needs.
type DispatchParams struct {
	Strategy             Strategy
	MaxProducts          int
	QualityThreshold     float64
	MinCoverageFraction  float64
	GridSpacingMeters    float64
	CloudWeight          float64
	QualityWeight        float64
	SolverTimeoutSeconds int
	Backend              milp.Backend
}

// DispatchResult carries both the always-present product subset and, for
// coverage strategies that actually ran a solver, the underlying
// CoverageResult.
type DispatchResult struct {
	Products []ProcessedProduct
	Coverage *CoverageResult
}

// Dispatch runs the selected strategy over the scored products. Coverage
// strategies fall back to best_n, logging a warning, whenever a
// precondition is missing (no products, no footprints, no AOI, no sample
// points). coverage_optimal falls back to the greedy solver, also with a
// warning, when the MILP back-end is unavailable, times out, or returns no
// usable solution.
func Dispatch(products []ProcessedProduct, aoi geometry.Polygon, params DispatchParams) DispatchResult {
	switch params.Strategy {
	case StrategyBestN:
		return DispatchResult{Products: bestN(products, params.MaxProducts)}
	case StrategyAllAboveThreshold:
		return DispatchResult{Products: allAboveThreshold(products, params.QualityThreshold)}
	case StrategyBestPerWeek:
		return DispatchResult{Products: bestPerWeek(products)}
	case StrategyCoverageGreedy, StrategyCoverageOptimal:
		return dispatchCoverage(products, aoi, params)
	default:
		return DispatchResult{Products: bestN(products, params.MaxProducts)}
	}
}

func dispatchCoverage(products []ProcessedProduct, aoi geometry.Polygon, params DispatchParams) DispatchResult {
	hasFootprint := false
	for _, p := range products {
		if !p.Footprint.Empty() {
			hasFootprint = true
			break
		}
	}
	if !hasFootprint || aoi.Empty() || aoi.Area() <= 0 {
		logger.Warn("coverage", "coverage strategy missing preconditions, falling back to best_n")
		return DispatchResult{Products: bestN(products, params.MaxProducts)}
	}

	instance, ok := BuildInstance(aoi, products, params.GridSpacingMeters, params.MinCoverageFraction, params.CloudWeight, params.QualityWeight)
	if !ok {
		logger.Warn("coverage", "no sample points for AOI, falling back to best_n")
		return DispatchResult{Products: bestN(products, params.MaxProducts)}
	}

	var result CoverageResult
	if params.Strategy == StrategyCoverageOptimal {
		if milpResult, err := MILPSolve(instance, params.Backend, params.SolverTimeoutSeconds); err == nil {
			result = *milpResult
		} else {
			logger.Warn("coverage", fmt.Sprintf("falling back to greedy: %v", err))
			result = GreedySolve(instance)
		}
	} else {
		result = GreedySolve(instance)
	}

	selected := selectProducts(products, result.SelectedIndices)
	return DispatchResult{Products: selected, Coverage: &result}
}

func selectProducts(products []ProcessedProduct, indices []int) []ProcessedProduct {
	byIndex := make(map[int]ProcessedProduct, len(products))
	for _, p := range products {
		byIndex[p.Index] = p
	}
	out := make([]ProcessedProduct, 0, len(indices))
	for _, idx := range indices {
		if p, ok := byIndex[idx]; ok {
			out = append(out, p)
		}
	}
	return out
}

// rankLess implements the stable tie-break shared by best_n and
// all_above_threshold: higher AOI%, then lower cloud%, then more recent.
func rankLess(a, b ProcessedProduct) bool {
	if a.QualityScore != b.QualityScore {
		return a.QualityScore > b.QualityScore
	}
	if a.AOICoverage != b.AOICoverage {
		return a.AOICoverage > b.AOICoverage
	}
	if a.CloudCover != b.CloudCover {
		return a.CloudCover < b.CloudCover
	}
	return a.SensingDate.After(b.SensingDate)
}

func sortedByScore(products []ProcessedProduct) []ProcessedProduct {
	out := make([]ProcessedProduct, len(products))
	copy(out, products)
	sort.SliceStable(out, func(i, j int) bool { return rankLess(out[i], out[j]) })
	return out
}

func bestN(products []ProcessedProduct, maxProducts int) []ProcessedProduct {
	sorted := sortedByScore(products)
	if maxProducts <= 0 || maxProducts > len(sorted) {
		maxProducts = len(sorted)
	}
	return sorted[:maxProducts]
}

func allAboveThreshold(products []ProcessedProduct, threshold float64) []ProcessedProduct {
	sorted := sortedByScore(products)
	out := make([]ProcessedProduct, 0, len(sorted))
	for _, p := range sorted {
		if p.QualityScore >= threshold {
			out = append(out, p)
		}
	}
	return out
}

func bestPerWeek(products []ProcessedProduct) []ProcessedProduct {
	type weekKey struct {
		year, week int
	}
	best := make(map[weekKey]ProcessedProduct)
	for _, p := range products {
		y, w := p.SensingDate.ISOWeek()
		key := weekKey{y, w}
		if existing, ok := best[key]; !ok || p.QualityScore > existing.QualityScore {
			best[key] = p
		}
	}
	out := make([]ProcessedProduct, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QualityScore > out[j].QualityScore })
	return out
}

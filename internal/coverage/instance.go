package coverage

import "satcoverage/internal/geometry"

// BuildInstance runs the grid sampler and coverage-matrix builder over aoi
// and products, producing the immutable CoverageInstance the solvers
// consume. gridSpacingMeters of 0 selects the auto spacing rule. Returns
// ok=false when the sampler yields zero points: the caller must treat the
// run as having no coverage path available.
func BuildInstance(aoi geometry.Polygon, products []ProcessedProduct, gridSpacingMeters, minCoverageFraction, cloudWeight, qualityWeight float64) (*CoverageInstance, bool) {
	aoiArea := aoi.Area()
	spacing := gridSpacingMeters
	if spacing <= 0 {
		spacing = AutoGridSpacing(aoiArea)
	}

	rawPoints := SamplePoints(aoi, spacing)
	if len(rawPoints) == 0 {
		return nil, false
	}

	candidates := make([]Candidate, len(products))
	for i, p := range products {
		candidates[i] = Candidate{ProcessedProduct: p}
	}

	sets := BuildCoverageMatrix(candidates, rawPoints)

	return &CoverageInstance{
		SamplePoints:        rawPoints,
		CoverageSets:        sets,
		Candidates:          candidates,
		AOIAreaM2:           aoiArea,
		MinCoverageFraction: minCoverageFraction,
		CloudWeight:         cloudWeight,
		QualityWeight:       qualityWeight,
	}, true
}

package coverage

// ScoreProducts computes each product's quality score in place: a convex
// combination of normalized AOI coverage, inverted cloud cover, and
// inverted date distance from the query-window center. Calling it twice on
// the same batch is idempotent: it only reads DateDiffDays, AOICoverage and
// CloudCover, and overwrites QualityScore.
func ScoreProducts(products []ProcessedProduct, weights ScoreWeights) {
	maxDD := 0.0
	for _, p := range products {
		if p.DateDiffDays > maxDD {
			maxDD = p.DateDiffDays
		}
	}

	for i := range products {
		p := &products[i]
		recencyTerm := 1.0
		if maxDD > 0 {
			recencyTerm = 1 - p.DateDiffDays/maxDD
		}
		score := weights.AOI*(p.AOICoverage/100) +
			weights.Cloud*(1-p.CloudCover/100) +
			weights.Recency*recencyTerm
		p.QualityScore = clamp(score, 0, 1)
	}
}

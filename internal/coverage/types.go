// Package coverage implements the Coverage Optimization Engine: the
// geometric pipeline and two solvers (greedy and MILP) that turn a catalog
// of candidate satellite footprints and an Area of Interest into a
// minimum-cost covering selection.
package coverage

import (
	"time"

	"satcoverage/internal/geometry"
)

// RawProduct is a single catalog record as returned by the catalog client,
// before filtering or scoring.
type RawProduct struct {
	ID                string
	Name              string
	ContentLength     int64
	SensingDate       time.Time
	FootprintWKT      string
	CloudCoverPercent float64
	ProductType       string
}

// ProcessedProduct is the output of the candidate filter: a raw product
// enriched with its AOI intersection percentage and recency distance, still
// missing only its quality score.
type ProcessedProduct struct {
	Index         int
	Name          string
	ID            string
	CloudCover    float64
	AOICoverage   float64
	DateDiffDays  float64
	SensingDate   time.Time
	ContentLength int64
	Footprint     geometry.Polygon
	QualityScore  float64
}

// Candidate is a ProcessedProduct augmented with its sample-point coverage
// set, owned by a single coverage run and discarded at the end of it.
type Candidate struct {
	ProcessedProduct
	CoveredPoints map[int]struct{}
}

// CoverageInstance is the immutable discrete set-cover instance built from
// an AOI and a list of candidates.
type CoverageInstance struct {
	SamplePoints        []Point
	CoverageSets        [][]int // coverage_sets[j] = sorted sample-point indices covered by candidate j
	Candidates          []Candidate
	AOIAreaM2           float64
	MinCoverageFraction float64
	CloudWeight         float64
	QualityWeight       float64
}

// Point is a 2D sample point in the AOI's projected CRS.
type Point struct {
	X, Y float64
}

// AOI bundles the projected Area-of-Interest polygon with its precomputed
// area in square meters.
type AOI struct {
	Polygon geometry.Polygon
	AreaM2  float64
}

// CoverageResult is the outcome of a coverage-strategy run.
type CoverageResult struct {
	SelectedIndices   []int
	CoverageFraction  float64
	UncoveredAreaM2   float64
	NumCandidates     int
	NumSelected       int
	SolverType        string // "greedy" | "milp"
	SolverTimeSeconds float64
	Optimal           *bool
}

// FilterParams are the hard pre-filter predicates applied by the candidate
// filter.
type FilterParams struct {
	MaxCloudCover         float64
	MinAOICoveragePercent float64
	MinContentLengthBytes int64
	ProductLevel          string
	RequestedRangeCenter  time.Time
}

// DefaultMinContentLengthBytes is 600 MiB. Sentinel-2 products smaller than
// this are usually partial tiles not worth downloading.
const DefaultMinContentLengthBytes = 600 * 1024 * 1024

// ScoreWeights are the quality-scorer weights; must sum to 1 within 0.01.
type ScoreWeights struct {
	AOI     float64
	Cloud   float64
	Recency float64
}

// DefaultScoreWeights returns the default 0.4/0.4/0.2 split.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{AOI: 0.4, Cloud: 0.4, Recency: 0.2}
}

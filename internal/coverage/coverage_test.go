package coverage

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"satcoverage/internal/geometry"
)

func rectWKT(minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf("POLYGON((%g %g,%g %g,%g %g,%g %g,%g %g))",
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY)
}

func rectPoly(minX, minY, maxX, maxY float64) geometry.Polygon {
	ring := []orb.Point{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY},
	}
	p, err := geometry.NewPolygon([][]orb.Point{ring})
	if err != nil {
		panic(err)
	}
	return p
}

func mustParseFootprint(t *testing.T, wkt string) geometry.Polygon {
	t.Helper()
	p, err := parseFootprint(wkt)
	if err != nil {
		t.Fatalf("parseFootprint(%q): %v", wkt, err)
	}
	return p
}

func TestGreedySingleFullCover(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	footprint := mustParseFootprint(t, rectWKT(0, 0, 10000, 10000))

	products := []ProcessedProduct{
		{Index: 0, CloudCover: 0, QualityScore: 1, Footprint: footprint},
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.4, 0.6)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	if len(result.SelectedIndices) != 1 || result.SelectedIndices[0] != 0 {
		t.Fatalf("selected = %v, want [0]", result.SelectedIndices)
	}
	if math.Abs(result.CoverageFraction-1.0) > 1e-9 {
		t.Fatalf("coverage fraction = %v, want 1.0", result.CoverageFraction)
	}
	if result.NumSelected != 1 {
		t.Fatalf("num selected = %v, want 1", result.NumSelected)
	}
}

func TestGreedySkipsRedundantMiddleTile(t *testing.T) {
	aoi := rectPoly(0, 0, 20000, 10000)
	a := mustParseFootprint(t, rectWKT(0, 0, 12000, 10000))
	b := mustParseFootprint(t, rectWKT(8000, 0, 20000, 10000))
	c := mustParseFootprint(t, rectWKT(8000, 0, 12000, 10000))

	products := []ProcessedProduct{
		{Index: 0, CloudCover: 10, QualityScore: 0.9, Footprint: a},
		{Index: 1, CloudCover: 10, QualityScore: 0.9, Footprint: b},
		{Index: 2, CloudCover: 10, QualityScore: 0.9, Footprint: c},
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	selected := map[int]bool{}
	for _, idx := range result.SelectedIndices {
		selected[idx] = true
	}
	if !selected[0] || !selected[1] || selected[2] {
		t.Fatalf("selected = %v, want {0,1} not 2", result.SelectedIndices)
	}
}

func TestGreedyPrefersCheaperFullCover(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	full := mustParseFootprint(t, rectWKT(0, 0, 10000, 10000))

	products := []ProcessedProduct{
		{Index: 0, CloudCover: 80, QualityScore: 0.2, Footprint: full},
		{Index: 1, CloudCover: 10, QualityScore: 0.9, Footprint: full},
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.3, 0.7)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	if len(result.SelectedIndices) != 1 || result.SelectedIndices[0] != 1 {
		t.Fatalf("selected = %v, want [1]", result.SelectedIndices)
	}
}

// The candidate union covers only ~70% of the AOI, below the 0.99 target.
func TestGreedyStopsAtUniverseBound(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	partial := mustParseFootprint(t, rectWKT(0, 0, 10000, 7000))

	products := []ProcessedProduct{
		{Index: 0, CloudCover: 10, QualityScore: 0.9, Footprint: partial},
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	if result.CoverageFraction < 0 || result.CoverageFraction > 0.75 {
		t.Fatalf("coverage fraction = %v, want within universe bound (~0.7)", result.CoverageFraction)
	}
	if result.CoverageFraction >= 0.99 {
		t.Fatalf("coverage fraction = %v, should not reach infeasible target", result.CoverageFraction)
	}
}

func TestScoreRanking(t *testing.T) {
	now := time.Now()
	products := []ProcessedProduct{
		{Index: 0, AOICoverage: 90, CloudCover: 5, DateDiffDays: 1, SensingDate: now},
		{Index: 1, AOICoverage: 50, CloudCover: 5, DateDiffDays: 1, SensingDate: now},
		{Index: 2, AOICoverage: 90, CloudCover: 50, DateDiffDays: 1, SensingDate: now},
	}
	ScoreProducts(products, DefaultScoreWeights())

	if !(products[0].QualityScore > products[1].QualityScore) {
		t.Fatalf("product 0 should outrank product 1: %v vs %v", products[0].QualityScore, products[1].QualityScore)
	}
	if !(products[0].QualityScore > products[2].QualityScore) {
		t.Fatalf("product 0 should outrank product 2: %v vs %v", products[0].QualityScore, products[2].QualityScore)
	}
	if math.Abs(products[1].QualityScore-products[2].QualityScore) > 0.05 {
		t.Fatalf("products 1 and 2 should be close: %v vs %v", products[1].QualityScore, products[2].QualityScore)
	}
}

func TestBestPerWeekPicksWeeklyMaximum(t *testing.T) {
	week1Monday := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	week2Monday := week1Monday.AddDate(0, 0, 7)

	products := []ProcessedProduct{
		{Index: 0, QualityScore: 0.5, SensingDate: week1Monday},
		{Index: 1, QualityScore: 0.9, SensingDate: week1Monday.AddDate(0, 0, 1)},
		{Index: 2, QualityScore: 0.3, SensingDate: week1Monday.AddDate(0, 0, 2)},
		{Index: 3, QualityScore: 0.4, SensingDate: week2Monday},
		{Index: 4, QualityScore: 0.95, SensingDate: week2Monday.AddDate(0, 0, 1)},
		{Index: 5, QualityScore: 0.2, SensingDate: week2Monday.AddDate(0, 0, 2)},
	}

	out := bestPerWeek(products)
	if len(out) != 2 {
		t.Fatalf("bestPerWeek returned %d products, want 2", len(out))
	}
	gotIndices := map[int]bool{out[0].Index: true, out[1].Index: true}
	if !gotIndices[1] || !gotIndices[4] {
		t.Fatalf("bestPerWeek = %v, want indices {1,4}", out)
	}
}

func TestUncoveredAreaMatchesCoverageFraction(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	footprint := mustParseFootprint(t, rectWKT(0, 0, 6000, 10000))
	products := []ProcessedProduct{{Index: 0, QualityScore: 0.8, Footprint: footprint}}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("no sample points")
	}
	result := GreedySolve(instance)

	want := (1 - result.CoverageFraction) * instance.AOIAreaM2
	if math.Abs(result.UncoveredAreaM2-want) > 1e-6*instance.AOIAreaM2 {
		t.Fatalf("uncovered area = %v, want %v", result.UncoveredAreaM2, want)
	}
}

func TestSelectedIndicesDistinctAndInRange(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	a := mustParseFootprint(t, rectWKT(0, 0, 6000, 10000))
	b := mustParseFootprint(t, rectWKT(4000, 0, 10000, 10000))
	products := []ProcessedProduct{
		{Index: 0, QualityScore: 0.8, Footprint: a},
		{Index: 1, QualityScore: 0.8, Footprint: b},
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("no sample points")
	}
	result := GreedySolve(instance)

	seen := map[int]bool{}
	for _, idx := range result.SelectedIndices {
		if idx < 0 || idx >= result.NumCandidates {
			t.Fatalf("selected index %d out of range [0,%d)", idx, result.NumCandidates)
		}
		if seen[idx] {
			t.Fatalf("duplicate selected index %d", idx)
		}
		seen[idx] = true
	}
}

func TestScoringIsIdempotent(t *testing.T) {
	now := time.Now()
	first := []ProcessedProduct{
		{Index: 0, AOICoverage: 80, CloudCover: 20, DateDiffDays: 2, SensingDate: now},
		{Index: 1, AOICoverage: 60, CloudCover: 40, DateDiffDays: 5, SensingDate: now},
	}
	second := make([]ProcessedProduct, len(first))
	copy(second, first)

	ScoreProducts(first, DefaultScoreWeights())
	ScoreProducts(second, DefaultScoreWeights())

	for i := range first {
		if first[i].QualityScore != second[i].QualityScore {
			t.Fatalf("product %d: scores differ across runs: %v vs %v", i, first[i].QualityScore, second[i].QualityScore)
		}
	}
}

func TestCoverageStrategyFallsBackToBestN(t *testing.T) {
	now := time.Now()
	products := []ProcessedProduct{
		{Index: 0, AOICoverage: 90, CloudCover: 5, QualityScore: 0.9, SensingDate: now},
		{Index: 1, AOICoverage: 50, CloudCover: 50, QualityScore: 0.5, SensingDate: now},
	}

	params := DispatchParams{Strategy: StrategyCoverageGreedy, MaxProducts: 5}
	got := Dispatch(products, geometry.Polygon{}, params)

	want := bestN(products, 5)
	if len(got.Products) != len(want) {
		t.Fatalf("fallback product count = %d, want %d", len(got.Products), len(want))
	}
	for i := range want {
		if got.Products[i].Index != want[i].Index {
			t.Fatalf("fallback products = %v, want %v", got.Products, want)
		}
	}
}

// With many identical full-cover candidates greedy must stop after one
// pick instead of exhausting the candidate list.
func TestGreedySelectsOnceFromRedundantCandidates(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	full := mustParseFootprint(t, rectWKT(0, 0, 10000, 10000))

	products := make([]ProcessedProduct, 8)
	for i := range products {
		products[i] = ProcessedProduct{Index: i, CloudCover: 10, QualityScore: 0.9, Footprint: full}
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	if len(result.SelectedIndices) != 1 {
		t.Fatalf("selected %d candidates, want 1", len(result.SelectedIndices))
	}
	if result.SelectedIndices[0] != 0 {
		t.Fatalf("selected = %v, want the lowest-position candidate on a tie", result.SelectedIndices)
	}
}

func TestGreedyReachesTargetWhenUniverseDoes(t *testing.T) {
	aoi := rectPoly(0, 0, 30000, 10000)
	tiles := []geometry.Polygon{
		mustParseFootprint(t, rectWKT(0, 0, 11000, 10000)),
		mustParseFootprint(t, rectWKT(10000, 0, 21000, 10000)),
		mustParseFootprint(t, rectWKT(20000, 0, 30000, 10000)),
	}
	products := make([]ProcessedProduct, len(tiles))
	for i, tile := range tiles {
		products[i] = ProcessedProduct{Index: i, CloudCover: 20, QualityScore: 0.7, Footprint: tile}
	}

	instance, ok := BuildInstance(aoi, products, 500, 0.95, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	result := GreedySolve(instance)

	if result.CoverageFraction < 0.95 {
		t.Fatalf("coverage fraction = %v, want >= 0.95 when the union covers the AOI", result.CoverageFraction)
	}
	if len(result.SelectedIndices) != 3 {
		t.Fatalf("selected = %v, want all three disjoint-ish tiles", result.SelectedIndices)
	}
}

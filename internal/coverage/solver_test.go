package coverage

import (
	"math"
	"testing"
	"time"

	"satcoverage/internal/coverage/milp"
)

// recordingBackend captures the formulated program and replies with a
// scripted result.
type recordingBackend struct {
	program milp.Program
	result  milp.Result
	err     error
}

func (b *recordingBackend) Available() bool { return true }

func (b *recordingBackend) Solve(p milp.Program) (milp.Result, error) {
	b.program = p
	return b.result, b.err
}

// bruteForceBackend solves small programs exactly by enumerating every
// candidate subset. A point counts as covered when any selected candidate's
// coverage row contains it.
type bruteForceBackend struct{}

func (bruteForceBackend) Available() bool { return true }

func (bruteForceBackend) Solve(p milp.Program) (milp.Result, error) {
	if p.NumX > 16 {
		return milp.Result{Status: milp.StatusOther}, nil
	}
	bestObjective := math.Inf(1)
	var bestMask uint32
	found := false

	for mask := uint32(0); mask < 1<<p.NumX; mask++ {
		covered := 0
		for _, row := range p.CoverageRows {
			for _, j := range row {
				if mask&(1<<j) != 0 {
					covered++
					break
				}
			}
		}
		if covered < p.MinCovered {
			continue
		}
		objective := 0.0
		for j := 0; j < p.NumX; j++ {
			if mask&(1<<j) != 0 {
				objective += p.CostX[j] + p.Epsilon
			}
		}
		if objective < bestObjective {
			bestObjective = objective
			bestMask = mask
			found = true
		}
	}
	if !found {
		return milp.Result{Status: milp.StatusOther}, nil
	}
	selected := make([]bool, p.NumX)
	for j := 0; j < p.NumX; j++ {
		selected[j] = bestMask&(1<<j) != 0
	}
	return milp.Result{Status: milp.StatusOptimal, SelectedX: selected}, nil
}

func buildTwoTileInstance(t *testing.T) *CoverageInstance {
	t.Helper()
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
	return instance
}

func TestMILPSolveNilBackendFallsThrough(t *testing.T) {
	instance := buildTwoTileInstance(t)
	result, err := MILPSolve(instance, nil, 60)
	if result != nil {
		t.Fatalf("expected nil result for nil backend, got %+v", result)
	}
	if !IsKind(err, KindSolverUnavailable) {
		t.Fatalf("err = %v, want a SolverUnavailable error", err)
	}
}

// blockingBackend never returns within any test-scale budget.
type blockingBackend struct{}

func (blockingBackend) Available() bool { return true }

func (blockingBackend) Solve(milp.Program) (milp.Result, error) {
	time.Sleep(10 * time.Second)
	return milp.Result{Status: milp.StatusOther}, nil
}

func TestMILPSolveEnforcesTimeLimit(t *testing.T) {
	instance := buildTwoTileInstance(t)

	start := time.Now()
	result, err := MILPSolve(instance, blockingBackend{}, 1)
	elapsed := time.Since(start)

	if result != nil {
		t.Fatalf("expected nil result after timeout, got %+v", result)
	}
	if !IsKind(err, KindSolverTimeout) {
		t.Fatalf("err = %v, want a SolverTimeout error", err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("solve blocked %v past its 1s budget", elapsed)
	}
}

func TestMILPSolveFormulation(t *testing.T) {
	instance := buildTwoTileInstance(t)
	backend := &recordingBackend{result: milp.Result{
		Status:    milp.StatusOptimal,
		SelectedX: []bool{true, true, false},
	}}

	result, err := MILPSolve(instance, backend, 60)
	if err != nil {
		t.Fatalf("MILPSolve: %v", err)
	}

	p := backend.program
	m := len(instance.SamplePoints)
	if p.NumX != 3 || p.NumP != m {
		t.Fatalf("program dims = (%d,%d), want (3,%d)", p.NumX, p.NumP, m)
	}
	if p.MinCovered != int(float64(m)*0.99) {
		t.Fatalf("MinCovered = %d, want %d", p.MinCovered, int(float64(m)*0.99))
	}
	if p.TimeLimitMillis != 60000 {
		t.Fatalf("TimeLimitMillis = %d, want 60000", p.TimeLimitMillis)
	}
	for j, cost := range p.CostX {
		if cost < 0.01 {
			t.Fatalf("cost[%d] = %v, below the 0.01 floor", j, cost)
		}
	}
	for i, row := range p.CoverageRows {
		for _, j := range row {
			foundPoint := false
			for _, idx := range instance.CoverageSets[j] {
				if idx == i {
					foundPoint = true
					break
				}
			}
			if !foundPoint {
				t.Fatalf("coverage row %d names candidate %d which does not cover it", i, j)
			}
		}
	}

	if result.Optimal == nil || !*result.Optimal {
		t.Fatalf("optimal = %v, want true", result.Optimal)
	}
	if result.SolverType != "milp" {
		t.Fatalf("solver type = %q, want milp", result.SolverType)
	}
	if len(result.SelectedIndices) != 2 {
		t.Fatalf("selected = %v, want the two scripted candidates", result.SelectedIndices)
	}
}

func TestMILPSolveFeasibleIsNotOptimal(t *testing.T) {
	instance := buildTwoTileInstance(t)
	backend := &recordingBackend{result: milp.Result{
		Status:    milp.StatusFeasible,
		SelectedX: []bool{true, true, true},
	}}

	result, err := MILPSolve(instance, backend, 60)
	if err != nil {
		t.Fatalf("MILPSolve: %v", err)
	}
	if result.Optimal == nil || *result.Optimal {
		t.Fatalf("optimal = %v, want false for a time-limited incumbent", result.Optimal)
	}
}

func TestMILPSolveOtherStatusReturnsNil(t *testing.T) {
	instance := buildTwoTileInstance(t)
	backend := &recordingBackend{result: milp.Result{Status: milp.StatusOther}}
	result, err := MILPSolve(instance, backend, 60)
	if result != nil {
		t.Fatalf("expected nil result for infeasible status, got %+v", result)
	}
	if err == nil {
		t.Fatal("expected an error explaining the unusable status")
	}
}

func TestMILPRejectsRedundantMiddleTile(t *testing.T) {
	instance := buildTwoTileInstance(t)
	result, err := MILPSolve(instance, bruteForceBackend{}, 60)
	if err != nil {
		t.Fatalf("MILPSolve: %v", err)
	}
	selected := map[int]bool{}
	for _, idx := range result.SelectedIndices {
		selected[idx] = true
	}
	if !selected[0] || !selected[1] || selected[2] {
		t.Fatalf("selected = %v, want {0,1} without the redundant middle tile", result.SelectedIndices)
	}
	if result.CoverageFraction < 0.99 {
		t.Fatalf("coverage fraction = %v, want >= 0.99", result.CoverageFraction)
	}
}

// On any instance where the exact solve succeeds, its objective never
// exceeds greedy's.
func TestMILPObjectiveNeverWorseThanGreedy(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	full := mustParseFootprint(t, rectWKT(0, 0, 10000, 10000))
	left := mustParseFootprint(t, rectWKT(0, 0, 6000, 10000))
	right := mustParseFootprint(t, rectWKT(5000, 0, 10000, 10000))

	products := []ProcessedProduct{
		{Index: 0, CloudCover: 70, QualityScore: 0.3, Footprint: full},
		{Index: 1, CloudCover: 5, QualityScore: 0.95, Footprint: left},
		{Index: 2, CloudCover: 5, QualityScore: 0.95, Footprint: right},
	}
	instance, ok := BuildInstance(aoi, products, 500, 0.95, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}

	objective := func(indices []int) float64 {
		total := 0.0
		for _, origIdx := range indices {
			for _, c := range instance.Candidates {
				if c.Index == origIdx {
					total += costOf(c, instance.CloudWeight, instance.QualityWeight) + milpEpsilon
				}
			}
		}
		return total
	}

	greedy := GreedySolve(instance)
	exact, err := MILPSolve(instance, bruteForceBackend{}, 60)
	if err != nil {
		t.Fatalf("MILPSolve: %v", err)
	}
	if greedy.CoverageFraction < 0.95 {
		t.Fatalf("greedy did not reach the target: %v", greedy.CoverageFraction)
	}
	if objective(exact.SelectedIndices) > objective(greedy.SelectedIndices)+1e-9 {
		t.Fatalf("exact objective %v worse than greedy %v",
			objective(exact.SelectedIndices), objective(greedy.SelectedIndices))
	}
}

package coverage

import (
	"fmt"
	"time"

	"satcoverage/internal/coverage/milp"
)

const milpEpsilon = 1e-6

// MILPSolve formulates the set-cover instance as a binary program and
// dispatches it to backend, bounding the solve by timeLimitSeconds of wall
// clock. A nil result signals the caller to fall back to GreedySolve; the
// accompanying error says why (SolverUnavailable, SolverTimeout, or a
// backend failure). If the back-end stops early with an incumbent of its
// own accord, that feasible solution is accepted.
func MILPSolve(instance *CoverageInstance, backend milp.Backend, timeLimitSeconds int) (*CoverageResult, error) {
	if backend == nil || !backend.Available() {
		return nil, NewError(KindSolverUnavailable, "MILP back-end not available", nil)
	}

	m := len(instance.SamplePoints)
	n := len(instance.Candidates)

	costX := make([]float64, n)
	for j, c := range instance.Candidates {
		costX[j] = costOf(c, instance.CloudWeight, instance.QualityWeight)
	}

	coverageRows := make([][]int, m)
	coveringCandidates := make([]map[int]bool, m)
	for i := range coveringCandidates {
		coveringCandidates[i] = make(map[int]bool)
	}
	for j, set := range instance.CoverageSets {
		for _, i := range set {
			coveringCandidates[i][j] = true
		}
	}
	for i := 0; i < m; i++ {
		row := make([]int, 0, len(coveringCandidates[i]))
		for j := range coveringCandidates[i] {
			row = append(row, j)
		}
		coverageRows[i] = row
	}

	target := int(float64(m) * instance.MinCoverageFraction)

	program := milp.Program{
		NumX:            n,
		NumP:            m,
		CostX:           costX,
		Epsilon:         milpEpsilon,
		CoverageRows:    coverageRows,
		MinCovered:      target,
		TimeLimitMillis: timeLimitSeconds * 1000,
	}

	result, err := solveWithin(backend, program)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case milp.StatusOptimal, milp.StatusFeasible:
		optimal := result.Status == milp.StatusOptimal
		selected := make([]int, 0, n)
		for j, on := range result.SelectedX {
			if on {
				selected = append(selected, instance.Candidates[j].Index)
			}
		}
		cr := buildResult(instance, selected, "milp", &optimal, result.SolveSeconds)
		return &cr, nil
	default:
		return nil, fmt.Errorf("milp: solver returned no usable solution")
	}
}

// solveWithin runs backend.Solve in its own goroutine and abandons the
// solve once the program's wall-clock budget expires. The backend keeps
// running until it returns on its own (lp_solve has no cancellation hook);
// the buffered channel lets that late result be dropped without leaking the
// goroutine.
func solveWithin(backend milp.Backend, program milp.Program) (milp.Result, error) {
	type outcome struct {
		result milp.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := backend.Solve(program)
		done <- outcome{r, err}
	}()

	timer := time.NewTimer(time.Duration(program.TimeLimitMillis) * time.Millisecond)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.result, out.err
	case <-timer.C:
		return milp.Result{}, NewError(KindSolverTimeout,
			fmt.Sprintf("MILP solve exceeded %dms budget", program.TimeLimitMillis), nil)
	}
}

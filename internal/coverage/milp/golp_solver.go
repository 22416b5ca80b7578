//go:build cgo

package milp

import (
	"time"

	"github.com/draffensperger/golp"
)

// golpBackend solves Program with lp_solve via the cgo-backed
// github.com/draffensperger/golp binding, branching over the binary x_j and
// p_i variables.
type golpBackend struct{}

func defaultBackend() Backend {
	return golpBackend{}
}

func (golpBackend) Available() bool { return true }

func (golpBackend) Solve(p Program) (Result, error) {
	start := time.Now()
	numCols := p.NumX + p.NumP
	lp := golp.NewLP(0, numCols)

	// lp_solve minimizes by default.
	obj := make([]float64, numCols)
	for j := 0; j < p.NumX; j++ {
		obj[j] = p.CostX[j] + p.Epsilon
	}
	lp.SetObjFn(obj)

	for j := 0; j < numCols; j++ {
		lp.SetInt(j, true)
		if err := lp.AddConstraintSparse([]golp.Entry{{Col: j, Val: 1}}, golp.LE, 1); err != nil {
			return Result{Status: StatusOther}, err
		}
	}

	// Weak coverage rows p_i <= sum(x_j): p_i may stay 0 even when a selected
	// candidate covers point i. The driver recomputes coverage from the
	// selected x_j, so the reported fraction is unaffected.
	for i, row := range p.CoverageRows {
		pCol := p.NumX + i
		if len(row) == 0 {
			if err := lp.AddConstraintSparse([]golp.Entry{{Col: pCol, Val: 1}}, golp.EQ, 0); err != nil {
				return Result{Status: StatusOther}, err
			}
			continue
		}
		entries := make([]golp.Entry, 0, len(row)+1)
		entries = append(entries, golp.Entry{Col: pCol, Val: 1})
		for _, j := range row {
			entries = append(entries, golp.Entry{Col: j, Val: -1})
		}
		if err := lp.AddConstraintSparse(entries, golp.LE, 0); err != nil {
			return Result{Status: StatusOther}, err
		}
	}

	coverage := make([]golp.Entry, p.NumP)
	for i := 0; i < p.NumP; i++ {
		coverage[i] = golp.Entry{Col: p.NumX + i, Val: 1}
	}
	if err := lp.AddConstraintSparse(coverage, golp.GE, float64(p.MinCovered)); err != nil {
		return Result{Status: StatusOther}, err
	}

	// golp does not expose a wall-clock knob on the underlying lp_solve
	// build; the driver bounds this call externally and abandons the result
	// once TimeLimitMillis expires.
	ret := lp.Solve()

	elapsed := time.Since(start).Seconds()
	vars := lp.Variables()
	selected := make([]bool, p.NumX)
	for j := 0; j < p.NumX; j++ {
		selected[j] = vars[j] > 0.5
	}

	switch ret {
	case golp.OPTIMAL:
		return Result{Status: StatusOptimal, SelectedX: selected, SolveSeconds: elapsed}, nil
	case golp.SUBOPTIMAL:
		return Result{Status: StatusFeasible, SelectedX: selected, SolveSeconds: elapsed}, nil
	default:
		return Result{Status: StatusOther, SolveSeconds: elapsed}, nil
	}
}

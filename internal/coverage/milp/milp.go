// Package milp dispatches the coverage selection's binary program to a
// branch-and-bound back-end. The back-end is a pluggable capability: a
// cgo-backed implementation using github.com/draffensperger/golp when built
// with cgo enabled, and a stub reporting unavailability otherwise. Callers
// never see a build failure from a missing back-end, only a runtime
// "unavailable" status.
package milp

// Status is the terminal state of a solve attempt.
type Status int

const (
	StatusOptimal Status = iota
	StatusFeasible
	StatusOther
	StatusUnavailable
)

// Program is the already-linearized binary program: one binary variable per
// candidate (x) and one per sample point (p).
type Program struct {
	// NumX is the number of candidate-select variables x_0..x_{NumX-1}.
	NumX int
	// NumP is the number of point-covered variables p_0..p_{NumP-1}.
	NumP int
	// CostX[j] is candidate j's selection cost, excluding the cardinality
	// term; Epsilon is kept separate so the objective can be reconstructed
	// for reporting.
	CostX []float64
	// Epsilon is the cardinality tie-breaker coefficient added to every x_j
	// objective entry, preferring fewer images among equal-cost covers.
	Epsilon float64
	// CoverageRows[i] lists the candidate indices whose coverage set
	// contains point i. An empty row forces p_i = 0.
	CoverageRows [][]int
	// MinCovered is floor(M * min_coverage_fraction), the RHS of the
	// coverage constraint sum(p_i) >= MinCovered.
	MinCovered int
	// TimeLimitMillis bounds the branch-and-bound wall clock.
	TimeLimitMillis int
}

// Result is the solver's answer: which candidates were selected and under
// what terminal status.
type Result struct {
	Status       Status
	SelectedX    []bool // length Program.NumX
	SolveSeconds float64
}

// Backend is the pluggable MILP capability.
type Backend interface {
	// Available reports whether this backend can actually solve (e.g. the
	// cgo-linked solver library loaded successfully).
	Available() bool
	Solve(p Program) (Result, error)
}

// DefaultBackend returns the backend compiled into this build: the
// lp_solve-backed implementation when built with cgo, or a stub that always
// reports unavailable otherwise.
func DefaultBackend() Backend {
	return defaultBackend()
}

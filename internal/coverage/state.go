package coverage

// RunState is one node of the coverage-run state machine.
type RunState int

const (
	StateInit RunState = iota
	StateFiltered
	StateScored
	StateTerminalPlain
	StateSampling
	StateMatrixBuilt
	StateSolving
	StateDone
	StateNoCandidates
	StateNoSamplePoints
	StateSolverFail
)

func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFiltered:
		return "FILTERED"
	case StateScored:
		return "SCORED"
	case StateTerminalPlain:
		return "TERMINAL_PLAIN"
	case StateSampling:
		return "SAMPLING"
	case StateMatrixBuilt:
		return "MATRIX_BUILT"
	case StateSolving:
		return "SOLVING"
	case StateDone:
		return "DONE"
	case StateNoCandidates:
		return "NO_CANDIDATES"
	case StateNoSamplePoints:
		return "NO_SAMPLE_POINTS"
	case StateSolverFail:
		return "SOLVER_FAIL"
	default:
		return "UNKNOWN"
	}
}

// Run is the record of one coverage pipeline execution:
// filter -> score -> (plain strategy | coverage sampling+solve) -> done.
type Run struct {
	State    RunState
	Products []ProcessedProduct
	Result   DispatchResult
	Err      *Error
}

// RunPipeline drives the full state machine: filter, score, dispatch.
// NO_CANDIDATES is the only sink that stops before a strategy runs (an
// empty search is not itself an error, but a job built on it has nothing to
// select). NO_SAMPLE_POINTS and SOLVER_FAIL are handled inside Dispatch by
// falling back, so they never reach this function as terminal failures.
func RunPipeline(raw []RawProduct, aoi AOI, filterParams FilterParams, weights ScoreWeights, dispatchParams DispatchParams) *Run {
	r := &Run{State: StateInit}

	processed := FilterCandidates(raw, aoi.Polygon, filterParams)
	r.State = StateFiltered
	if len(processed) == 0 {
		r.State = StateNoCandidates
		r.Err = NewError(KindNoCandidates, "no candidates survived filtering", nil)
		return r
	}

	ScoreProducts(processed, weights)
	r.State = StateScored

	result := Dispatch(processed, aoi.Polygon, dispatchParams)
	r.Products = result.Products
	r.Result = result
	r.State = StateDone
	return r
}

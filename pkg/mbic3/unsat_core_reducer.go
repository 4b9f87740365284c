package mbic3

// UnsatCoreReducer shrinks an assumption list against a fixed base formula
// using iterated unsat-core extraction (spec §4.7). It owns its own
// push/pop scope per call, independent of the Engine's solverContext
// bookkeeping — by construction every call balances its own Push with a
// deferred Pop, so it never leaves the shared solver at a different depth
// than it found it.
type UnsatCoreReducer struct {
	solver Solver
}

// NewUnsatCoreReducer wraps solver for core-based assumption reduction.
func NewUnsatCoreReducer(solver Solver) *UnsatCoreReducer {
	return &UnsatCoreReducer{solver: solver}
}

// ReduceAssumpUnsatcore asserts formula, then repeatedly calls
// CheckSatAssuming(assumps) — which must be UNSAT, since formula ∧
// AND(assumps) is assumed unsatisfiable on entry — replacing assumps with
// its own unsat core until the core stops shrinking or maxIter rounds have
// run (maxIter <= 0 means unbounded). When seed != 0, assumps is shuffled
// deterministically before the first round so which literals survive a
// non-minimal core is reproducible rather than an artifact of iteration
// order (spec §5, testable property 9).
func (r *UnsatCoreReducer) ReduceAssumpUnsatcore(formula Term, assumps []Term, maxIter int, seed int64) (kept, removed []Term, err error) {
	if err := r.solver.Push(); err != nil {
		return nil, nil, wrapSolverErr("push", err)
	}
	defer r.solver.Pop()

	if err := r.solver.AssertFormula(formula); err != nil {
		return nil, nil, wrapSolverErr("assert_formula", err)
	}

	remaining := append([]Term(nil), assumps...)
	if seed != 0 {
		newRandSource(seed).shuffle(remaining)
	}

	for iter := 0; ; iter++ {
		if maxIter > 0 && iter >= maxIter {
			break
		}

		res, err := r.solver.CheckSatAssuming(remaining)
		if err != nil {
			return nil, nil, wrapSolverErr("check_sat_assuming", err)
		}
		if res != Unsat {
			panicInvariant("ReduceAssumpUnsatcore: base formula with assumptions was not UNSAT")
		}

		core, err := r.solver.GetUnsatCore()
		if err != nil {
			return nil, nil, wrapSolverErr("get_unsat_core", err)
		}

		next := make([]Term, 0, len(core))
		for _, a := range remaining {
			if _, ok := core[a]; ok {
				next = append(next, a)
			}
		}
		if len(next) == len(remaining) {
			remaining = next
			break
		}
		remaining = next
	}

	kept = remaining
	inKept := make(map[Term]struct{}, len(kept))
	for _, k := range kept {
		inKept[k] = struct{}{}
	}
	for _, a := range assumps {
		if _, ok := inKept[a]; !ok {
			removed = append(removed, a)
		}
	}
	return kept, removed, nil
}

package mbic3

// generalizePredecessor extracts a concrete predecessor model from the
// currently-satisfiable solver context (it must be called while the SAT
// query that discovered the predecessor is still open — solverContext == 1
// relative to block's own push) and, when enabled, shrinks it into a
// smaller cube (spec §4.6.8). It always returns the full concrete state and
// input valuations alongside the (possibly reduced) cube, so Witness can
// report genuine values even when the cube used for blocking was
// generalized away from them.
func (e *Engine) generalizePredecessor(i int, childCube IC3Formula) (IC3Formula, map[Term]Term, map[Term]Term, error) {
	fullState := make(map[Term]Term)
	nextState := make(map[Term]Term)
	predLits := make([]Term, 0, len(e.ts.StateVars()))
	ds := NewDisjointSet(DefaultRank)

	for v := range e.ts.StateVars() {
		val, err := e.solver.GetValue(v)
		if err != nil {
			return IC3Formula{}, nil, nil, wrapSolverErr("get_value(state)", err)
		}
		fullState[v] = val
		ds.Add(v, val)

		eq, err := e.env.MakeTerm(OpEqual, v, val)
		if err != nil {
			return IC3Formula{}, nil, nil, err
		}
		predLits = append(predLits, eq)

		nv, err := e.ts.Next(v)
		if err != nil {
			return IC3Formula{}, nil, nil, err
		}
		nval, err := e.solver.GetValue(nv)
		if err != nil {
			return IC3Formula{}, nil, nil, wrapSolverErr("get_value(next)", err)
		}
		nextState[nv] = nval
	}

	inputs := make(map[Term]Term)
	for v := range e.ts.InputVars() {
		val, err := e.solver.GetValue(v)
		if err != nil {
			return IC3Formula{}, nil, nil, wrapSolverErr("get_value(input)", err)
		}
		inputs[v] = val
	}

	// i == 1 means the predecessor sits one step above init. Shrinking the
	// cube here risks the generalized (weaker) cube re-admitting a state
	// that init itself excludes, which the frame-0/init special case
	// (frameAssumptions(0) == just the init label, no accumulated clauses)
	// cannot then catch; the reference engine always uses the full
	// concrete cube at this level (spec §4.6.8).
	if !e.opts.PredecessorGeneralization || i == 1 {
		cube, err := Conjunction(e.env, predLits)
		return cube, fullState, inputs, err
	}

	var reduced []Term
	var err error
	if e.opts.FunctionalPreimage && e.ts.IsDeterministic() {
		reduced, err = e.functionalPreimage(inputs, nextState)
	} else {
		reduced, err = e.relationalPreimage(i, childCube, ds, predLits)
	}
	if err != nil {
		return IC3Formula{}, nil, nil, err
	}

	reducedCube, err := Conjunction(e.env, reduced)
	return reducedCube, fullState, inputs, err
}

// functionalPreimage computes the predecessor cube directly rather than
// shrinking one (spec §4.6.8): substitute the model's concrete input and
// next-state values into trans, leaving only the current-state variables
// free, then conjunctively partition the result. Only valid when
// ts.IsDeterministic() — with no input variables, trans substituted this
// way pins down exactly the states that reach the sampled next-state
// values, which is the predecessor by construction, no reducer needed.
func (e *Engine) functionalPreimage(inputs, nextState map[Term]Term) ([]Term, error) {
	m := make(map[Term]Term, len(inputs)+len(nextState))
	for v, val := range inputs {
		m[v] = val
	}
	for nv, val := range nextState {
		m[nv] = val
	}

	preimage, err := e.env.Substitute(e.ts.Trans(), m)
	if err != nil {
		return nil, err
	}

	var conjuncts []Term
	e.env.ConjunctivePartition(preimage, &conjuncts, true)
	return conjuncts, nil
}

// relationalPreimage shrinks predLits via the unsat-core reducer: fixing
// F_{i-1} ∧ trans ∧ ¬childCube' as the base (known unsatisfiable together
// with the full predLits set, since that is exactly how this predecessor
// was discovered not to be excludable), find the subset of predLits that
// suffices to force the transition into childCube. Before reducing,
// predLits is augmented with the congruence equalities ds already computed
// over the sampled model (mbic3.cpp's generalize_predecessor: "add
// congruent equalities to cube_lits") — two state variables that happened
// to get the same model value are asserted equal to each other, which lets
// the reducer drop one of their direct `v = val` equalities in favor of the
// cheaper `v1 = v2` link when relative induction doesn't need the concrete
// value itself.
func (e *Engine) relationalPreimage(i int, childCube IC3Formula, ds *DisjointSet, predLits []Term) ([]Term, error) {
	augmented := make([]Term, len(predLits), len(predLits)+len(e.ts.StateVars()))
	copy(augmented, predLits)
	for v := range e.ts.StateVars() {
		rep := ds.Find(v)
		if rep == v {
			continue
		}
		eq, err := e.env.MakeTerm(OpEqual, rep, v)
		if err != nil {
			return nil, err
		}
		augmented = append(augmented, eq)
	}

	splitLits, err := splitEq(e.env, augmented)
	if err != nil {
		return nil, err
	}

	framePart, err := conjunction(e.env, e.frameAssumptions(i-1))
	if err != nil {
		return nil, err
	}
	base, err := e.env.MakeTerm(OpAnd, framePart, e.ts.Trans())
	if err != nil {
		return nil, err
	}

	nextChild, err := e.ts.Next(childCube.Term)
	if err != nil {
		return nil, err
	}
	notNextChild, err := e.env.MakeTerm(OpNot, nextChild)
	if err != nil {
		return nil, err
	}
	base, err = e.env.MakeTerm(OpAnd, base, notNextChild)
	if err != nil {
		return nil, err
	}

	kept, _, err := e.reducer.ReduceAssumpUnsatcore(base, splitLits, e.opts.MaxGenIter, e.opts.RandomSeed)
	return kept, err
}

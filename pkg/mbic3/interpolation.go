package mbic3

import "fmt"

// initializeInterpolation wires the second (interpolating) solver into the
// engine for IndGenMode 2 (spec §4.6.2, §4.8): it creates matching state,
// next-state, and input symbols in the interpolating solver and pre-caches
// both translation directions, so TermTranslator.Transfer degenerates to a
// pure rename for every symbol the transition system defines. Only the
// compound terms built during generalization (frame conjunctions, trans,
// cubes) are translated structurally, on demand.
func (e *Engine) initializeInterpolation() error {
	interp := e.opts.InterpolatingSolver
	if interp == nil {
		return fmt.Errorf("mbic3: IndGenMode 2 requires WithInterpolatingSolver")
	}
	e.interpSolver = interp
	e.toInterp = NewTermTranslator(e.solver, interp)
	e.toSolver = NewTermTranslator(interp, e.solver)

	cacheVar := func(v Term) error {
		named, ok := v.(Named)
		if !ok {
			// Best effort: a Solver whose symbols don't report their own
			// name gets no pre-caching, and pays for a slower (but still
			// correct) structural translation the first time each symbol
			// is encountered inside a compound term.
			return nil
		}
		interpTerm, err := interp.MakeSymbol(named.Name(), v.Sort())
		if err != nil {
			return wrapSolverErr("make_symbol(interp)", err)
		}
		e.toInterp.Cache(v, interpTerm)
		e.toSolver.Cache(interpTerm, v)
		return nil
	}

	for v := range e.ts.StateVars() {
		if err := cacheVar(v); err != nil {
			return err
		}
		nv, err := e.ts.Next(v)
		if err != nil {
			return err
		}
		if err := cacheVar(nv); err != nil {
			return err
		}
	}
	for v := range e.ts.InputVars() {
		if err := cacheVar(v); err != nil {
			return err
		}
	}

	return nil
}

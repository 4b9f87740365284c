package mbic3

// TermEnv is a thin facade over a Solver, providing term construction,
// substitution, traversal, and free-symbol enumeration (spec §4.1). It adds
// no state of its own beyond the wrapped Solver; every failure is surfaced
// as a *SolverError rather than swallowed.
type TermEnv struct {
	solver Solver
}

// NewTermEnv wraps solver in a TermEnv.
func NewTermEnv(solver Solver) *TermEnv {
	return &TermEnv{solver: solver}
}

// Solver returns the wrapped Solver, for components that need the raw
// capability (push/pop, check-sat) alongside TermEnv's conveniences.
func (e *TermEnv) Solver() Solver {
	return e.solver
}

// MakeTerm builds a compound term, wrapping any Solver failure.
func (e *TermEnv) MakeTerm(op Op, args ...Term) (Term, error) {
	t, err := e.solver.MakeTerm(op, args...)
	return t, wrapSolverErr("make_term", err)
}

// MakeValue builds a constant value term.
func (e *TermEnv) MakeValue(sort Sort, literal any) (Term, error) {
	t, err := e.solver.MakeValue(sort, literal)
	return t, wrapSolverErr("make_value", err)
}

// MakeSymbol builds (or interns) a named leaf variable.
func (e *TermEnv) MakeSymbol(name string, sort Sort) (Term, error) {
	t, err := e.solver.MakeSymbol(name, sort)
	return t, wrapSolverErr("make_symbol", err)
}

// Substitute applies m to term.
func (e *TermEnv) Substitute(term Term, m map[Term]Term) (Term, error) {
	t, err := e.solver.Substitute(term, m)
	return t, wrapSolverErr("substitute", err)
}

// FreeSymbolicConsts walks term and inserts every leaf symbolic constant it
// finds into out. Unlike FreeSymbols, it does not recurse into operator
// positions that would only make sense for uninterpreted functions — for
// this package's term representation (no uninterpreted function
// application) the two coincide, but the distinction is kept so a future
// Solver with uninterpreted functions can specialize FreeSymbols.
func (e *TermEnv) FreeSymbolicConsts(term Term, out map[Term]struct{}) {
	e.walkSymbols(term, out, false)
}

// FreeSymbols walks term and inserts every free symbol it finds into out,
// including (for Solvers that have them) uninterpreted function symbols.
// This package's term representation has no uninterpreted functions, so
// FreeSymbols and FreeSymbolicConsts currently behave identically; the
// separate entry point mirrors the reference implementation's API. Nothing
// in this module calls it.
func (e *TermEnv) FreeSymbols(term Term, out map[Term]struct{}) {
	e.walkSymbols(term, out, true)
}

func (e *TermEnv) walkSymbols(term Term, out map[Term]struct{}, includeFuncs bool) {
	visited := make(map[Term]struct{})
	stack := []Term{term}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[t]; ok {
			continue
		}
		visited[t] = struct{}{}

		if t.IsSymbolicConst() {
			out[t] = struct{}{}
			continue
		}
		for _, c := range t.Children() {
			stack = append(stack, c)
		}
	}
	_ = includeFuncs // no uninterpreted-function symbols in this term model
}

// ConjunctivePartition flattens the top-level AND structure of term into
// out, one literal per non-AND conjunct. When flatten is true it recurses
// through nested ANDs (the common case); when false it only looks at the
// immediate top-level AND node, mirroring the reference implementation's
// conjunctive_partition(term, out, flatten_nested) signature.
func (e *TermEnv) ConjunctivePartition(term Term, out *[]Term, flatten bool) {
	if term.IsSymbolicConst() || term.IsValue() || term.Op() != OpAnd {
		*out = append(*out, term)
		return
	}

	for _, c := range term.Children() {
		if flatten && !c.IsSymbolicConst() && !c.IsValue() && c.Op() == OpAnd {
			e.ConjunctivePartition(c, out, flatten)
		} else {
			*out = append(*out, c)
		}
	}
}

// GetValue returns the model value assigned to term by the most recent
// satisfiable check. Only valid immediately after a Sat result.
func (e *TermEnv) GetValue(term Term) (Term, error) {
	t, err := e.solver.GetValue(term)
	return t, wrapSolverErr("get_value", err)
}

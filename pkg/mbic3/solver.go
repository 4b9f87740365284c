package mbic3

import "fmt"

// CheckSatResult is the 3-valued outcome of a solver query.
type CheckSatResult int

const (
	Unknown CheckSatResult = iota
	Sat
	Unsat
)

// String renders a CheckSatResult for log lines.
func (r CheckSatResult) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Solver is the capability the engine consumes (spec §6.1). It is treated
// as an external collaborator: this package never implements theory
// reasoning itself, only drives a conforming Solver through push/pop,
// assumption-based SAT queries, and model/unsat-core extraction. A small
// reference implementation lives in the refsolver subpackage.
type Solver interface {
	// MakeSort constructs (or interns) a Sort. args carries the width for
	// SortBitVec; it is ignored for other kinds.
	MakeSort(kind SortKind, args ...int) (Sort, error)

	// MakeTerm builds (or interns) a compound term applying op to args.
	MakeTerm(op Op, args ...Term) (Term, error)

	// MakeValue builds (or interns) a constant value term of the given
	// sort. literal is a bool for SortBool, and an int/int64 for SortBitVec
	// (truncated to its width) and SortInt.
	MakeValue(sort Sort, literal any) (Term, error)

	// MakeSymbol builds (or interns) a leaf variable with the given name
	// and sort. Calling MakeSymbol twice with the same name must return the
	// same term (hash-consing).
	MakeSymbol(name string, sort Sort) (Term, error)

	// Push opens a new assertion scope.
	Push() error

	// Pop discards the most recently opened assertion scope, including any
	// assertions made within it.
	Pop() error

	// AssertFormula adds a Bool-sorted term as a permanent assertion in the
	// current scope.
	AssertFormula(t Term) error

	// CheckSat checks satisfiability of all assertions in all open scopes.
	CheckSat() (CheckSatResult, error)

	// CheckSatAssuming checks satisfiability of all assertions together
	// with the given literals, without permanently asserting them.
	CheckSatAssuming(assumps []Term) (CheckSatResult, error)

	// GetValue returns the model value assigned to t by the most recent
	// satisfiable CheckSat/CheckSatAssuming call. Undefined otherwise.
	GetValue(t Term) (Term, error)

	// GetUnsatCore returns the subset of the literals passed to the most
	// recent unsatisfiable CheckSatAssuming call that suffices to explain
	// the unsatisfiability. Undefined after anything else.
	GetUnsatCore() (map[Term]struct{}, error)

	// Substitute applies m to term, returning the rewritten term.
	Substitute(t Term, m map[Term]Term) (Term, error)

	// SetOpt configures a solver option such as "produce-models",
	// "incremental", or "produce-unsat-cores".
	SetOpt(name, value string) error
}

// InterpolatingSolver is a Solver that can additionally compute Craig
// interpolants between two mutually unsatisfiable formulas (spec §4.8).
type InterpolatingSolver interface {
	Solver

	// ResetAssertions discards every assertion and open scope, returning
	// the solver to its initial state.
	ResetAssertions() error

	// GetInterpolant requires a ∧ b to be unsatisfiable. It returns an
	// interpolant i such that a → i, i ∧ b is unsatisfiable, and every free
	// symbol of i occurs in both a and b.
	GetInterpolant(a, b Term) (Term, error)
}

// TermTranslator maps terms between two solvers by structural recursion,
// caching results so that repeated sub-terms are translated once. Even when
// both solvers share a Term representation (as the bundled refsolver-backed
// interpolating pair does) this stays a distinct type so a future solver
// pairing with genuinely different term representations can be substituted
// without changing the engine (spec §4.8, §9 design note).
type TermTranslator struct {
	from, to Solver
	cache    map[Term]Term
}

// NewTermTranslator creates a translator from one solver's terms to
// another's. Pre-populate shared symbols via Cache before translating
// compound terms that mention them, so translation degenerates to a pure
// rename for state/next/uninterpreted-function symbols (spec §4.8).
func NewTermTranslator(from, to Solver) *TermTranslator {
	return &TermTranslator{from: from, to: to, cache: make(map[Term]Term)}
}

// Cache records that src (a term of the source solver) corresponds to dst
// (a term of the destination solver), short-circuiting recursive
// translation for that subterm.
func (tt *TermTranslator) Cache(src, dst Term) {
	tt.cache[src] = dst
}

// GetCache exposes the translator's memo table for bulk pre-population, the
// way mbic3.cpp's initialize() populates to_solver_->get_cache() directly.
func (tt *TermTranslator) GetCache() map[Term]Term {
	return tt.cache
}

// Transfer translates term (built with tt.from) into an equivalent term
// built with tt.to, by structural recursion with memoization.
func (tt *TermTranslator) Transfer(term Term) (Term, error) {
	if dst, ok := tt.cache[term]; ok {
		return dst, nil
	}

	if term.IsValue() {
		// Values carry no children to translate; re-create the same
		// literal against the destination solver.
		dst, err := tt.to.MakeValue(term.Sort(), valueLiteral(term))
		if err != nil {
			return nil, err
		}
		tt.cache[term] = dst
		return dst, nil
	}

	if term.IsSymbolicConst() {
		return nil, fmt.Errorf("mbic3: TermTranslator: uncached symbol %s", term)
	}

	children := term.Children()
	dstChildren := make([]Term, len(children))
	for i, c := range children {
		dc, err := tt.Transfer(c)
		if err != nil {
			return nil, err
		}
		dstChildren[i] = dc
	}

	dst, err := tt.to.MakeTerm(term.Op(), dstChildren...)
	if err != nil {
		return nil, err
	}
	tt.cache[term] = dst
	return dst, nil
}

// valueLiteral extracts a Go literal from a value Term so it can be
// re-created against another solver. It is a small open set matching the
// sorts this package actually constructs values of.
func valueLiteral(t Term) any {
	type literalHolder interface{ Literal() any }
	if lh, ok := t.(literalHolder); ok {
		return lh.Literal()
	}
	return nil
}

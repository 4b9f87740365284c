package refsolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitrdm/mbic3/pkg/mbic3"
)

// GetInterpolant computes a Craig interpolant the way an enumerative solver
// has to: rather than extracting it from a proof, it exhaustively walks
// every satisfying assignment of a's own free symbols, projects each one
// onto the vocabulary a and b share, and builds the interpolant as the
// disjunction of those projections restated as equalities. The result only
// mentions shared symbols by construction, a implies it by construction
// (every satisfying assignment of a is accounted for by some disjunct), and
// it is unsatisfiable together with b because every one of those
// projections extends to a satisfying assignment of a, and a ∧ b is
// unsatisfiable.
func (s *Solver) GetInterpolant(a, b mbic3.Term) (mbic3.Term, error) {
	ra, err := asTerm(a)
	if err != nil {
		return nil, err
	}
	rb, err := asTerm(b)
	if err != nil {
		return nil, err
	}

	if err := s.requireUnsatTogether(ra, rb); err != nil {
		return nil, err
	}

	symsA := s.orderedFreeSymbols(ra)
	symsB := s.orderedFreeSymbols(rb)
	bSet := make(map[*term]struct{}, len(symsB))
	for _, sym := range symsB {
		bSet[sym] = struct{}{}
	}
	var shared []*term
	for _, sym := range symsA {
		if _, ok := bSet[sym]; ok {
			shared = append(shared, sym)
		}
	}

	projections, err := s.collectProjections(ra, symsA, shared)
	if err != nil {
		return nil, err
	}
	if len(projections) == 0 {
		// a is unsatisfiable on its own; false trivially implies it and is
		// trivially unsatisfiable with anything.
		return s.MakeValue(mbic3.BoolSort, false)
	}

	disjuncts := make([]mbic3.Term, 0, len(projections))
	for _, proj := range projections {
		conj, err := s.projectionTerm(shared, proj)
		if err != nil {
			return nil, err
		}
		disjuncts = append(disjuncts, conj)
	}
	return s.disjOf(disjuncts)
}

func (s *Solver) requireUnsatTogether(a, b *term) error {
	if err := s.Push(); err != nil {
		return err
	}
	defer s.Pop()
	if err := s.AssertFormula(a); err != nil {
		return err
	}
	if err := s.AssertFormula(b); err != nil {
		return err
	}
	res, err := s.CheckSat()
	if err != nil {
		return err
	}
	if res != mbic3.Unsat {
		return errors.New("refsolver: GetInterpolant: a ∧ b is not unsatisfiable")
	}
	return nil
}

// orderedFreeSymbols collects every symbol leaf reachable from t, in the
// solver's own symbol-registration order (so two calls over different terms
// produce comparably-ordered slices, which collectProjections relies on to
// build a stable projection key).
func (s *Solver) orderedFreeSymbols(t *term) []*term {
	visited := make(map[*term]struct{})
	symSet := make(map[*term]struct{})
	var walk func(*term)
	walk = func(x *term) {
		if _, ok := visited[x]; ok {
			return
		}
		visited[x] = struct{}{}
		if x.kind == kindSymbol {
			symSet[x] = struct{}{}
			return
		}
		if x.kind == kindValue {
			return
		}
		for _, c := range x.args {
			cr, _ := asTerm(c)
			walk(cr)
		}
	}
	walk(t)

	out := make([]*term, 0, len(symSet))
	for _, sym := range s.symbols {
		if _, ok := symSet[sym]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// collectProjections enumerates every assignment to aSyms, keeping the
// distinct projections onto shared of those under which formula evaluates
// true.
func (s *Solver) collectProjections(formula *term, aSyms, shared []*term) ([]map[*term]*term, error) {
	totalBits := 0
	for _, sym := range aSyms {
		switch sym.sort.Kind {
		case mbic3.SortBool:
			totalBits++
		case mbic3.SortBitVec:
			totalBits += sym.sort.Width
		default:
			return nil, errors.Errorf("refsolver: symbol %q has non-enumerable sort %s", sym.name, sym.sort)
		}
	}
	if totalBits > s.maxEnumBits {
		return nil, errors.Errorf("refsolver: %d bits of symbol state exceed the enumeration cap of %d", totalBits, s.maxEnumBits)
	}

	assignment := make(map[*term]*term, len(aSyms))
	seen := make(map[string]map[*term]*term)

	var enumerate func(idx int) error
	enumerate = func(idx int) error {
		if idx == len(aSyms) {
			v, err := s.eval(formula, assignment)
			if err != nil {
				return err
			}
			if !v.lit.(bool) {
				return nil
			}
			proj := make(map[*term]*term, len(shared))
			for _, sh := range shared {
				proj[sh] = assignment[sh]
			}
			key := projectionKey(shared, proj)
			if _, ok := seen[key]; !ok {
				snap := make(map[*term]*term, len(proj))
				for k, pv := range proj {
					snap[k] = pv
				}
				seen[key] = snap
			}
			return nil
		}

		sym := aSyms[idx]
		domain, err := s.domainValues(sym.sort)
		if err != nil {
			return err
		}
		for _, v := range domain {
			assignment[sym] = v
			if err := enumerate(idx + 1); err != nil {
				return err
			}
		}
		delete(assignment, sym)
		return nil
	}
	if err := enumerate(0); err != nil {
		return nil, err
	}

	out := make([]map[*term]*term, 0, len(seen))
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out, nil
}

func projectionKey(shared []*term, proj map[*term]*term) string {
	var b strings.Builder
	for _, sh := range shared {
		fmt.Fprintf(&b, "%s=%v;", sh.key, proj[sh].lit)
	}
	return b.String()
}

func (s *Solver) projectionTerm(shared []*term, proj map[*term]*term) (mbic3.Term, error) {
	eqs := make([]mbic3.Term, 0, len(shared))
	for _, sh := range shared {
		eq, err := s.MakeTerm(mbic3.OpEqual, sh, proj[sh])
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	return s.conjOf(eqs)
}

func (s *Solver) conjOf(terms []mbic3.Term) (mbic3.Term, error) {
	if len(terms) == 0 {
		return s.MakeValue(mbic3.BoolSort, true)
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		var err error
		acc, err = s.MakeTerm(mbic3.OpAnd, acc, t)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (s *Solver) disjOf(terms []mbic3.Term) (mbic3.Term, error) {
	if len(terms) == 0 {
		return s.MakeValue(mbic3.BoolSort, false)
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		var err error
		acc, err = s.MakeTerm(mbic3.OpOr, acc, t)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

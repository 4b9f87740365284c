package refsolver

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/gitrdm/mbic3/pkg/mbic3"
)

// CheckSat checks satisfiability of every persistently asserted formula.
func (s *Solver) CheckSat() (mbic3.CheckSatResult, error) {
	return s.checkSatAssuming(nil)
}

// CheckSatAssuming checks satisfiability of the persistent assertions
// together with assumps, without asserting them.
func (s *Solver) CheckSatAssuming(assumps []mbic3.Term) (mbic3.CheckSatResult, error) {
	return s.checkSatAssuming(assumps)
}

func (s *Solver) checkSatAssuming(assumps []mbic3.Term) (mbic3.CheckSatResult, error) {
	all := make([]mbic3.Term, 0, len(s.scopes)+len(assumps))
	all = append(all, s.allAssertions()...)
	all = append(all, assumps...)

	model, sat, err := s.satisfyingAssignment(all)
	if err != nil {
		return mbic3.Unknown, err
	}
	if sat {
		s.model = model
		s.lastCore = nil
		return mbic3.Sat, nil
	}

	core, err := s.computeCore(assumps)
	if err != nil {
		return mbic3.Unknown, err
	}
	s.model = nil
	s.lastCore = core
	return mbic3.Unsat, nil
}

// computeCore finds a (not necessarily minimal) subset of assumps that
// stays unsatisfiable together with the persistent assertions, by trying to
// drop each assumption in turn and keeping only the ones whose removal
// makes the remainder satisfiable (standard deletion-based core
// extraction). GetUnsatCore's contract only promises a subset that suffices
// to explain the unsatisfiability, not the smallest one.
func (s *Solver) computeCore(assumps []mbic3.Term) (map[mbic3.Term]struct{}, error) {
	persistent := s.allAssertions()
	kept := append([]mbic3.Term(nil), assumps...)

	for _, a := range assumps {
		candidate := make([]mbic3.Term, 0, len(kept))
		dropped := false
		for _, k := range kept {
			if !dropped && k == a {
				dropped = true
				continue
			}
			candidate = append(candidate, k)
		}
		if !dropped {
			continue
		}
		trial := make([]mbic3.Term, 0, len(persistent)+len(candidate))
		trial = append(trial, persistent...)
		trial = append(trial, candidate...)

		_, sat, err := s.satisfyingAssignment(trial)
		if err != nil {
			return nil, err
		}
		if !sat {
			kept = candidate
		}
	}

	core := make(map[mbic3.Term]struct{}, len(kept))
	for _, k := range kept {
		core[k] = struct{}{}
	}
	return core, nil
}

// GetValue returns the model value t evaluates to under the most recent
// satisfying assignment.
func (s *Solver) GetValue(t mbic3.Term) (mbic3.Term, error) {
	rt, err := asTerm(t)
	if err != nil {
		return nil, err
	}
	if s.model == nil {
		return nil, errors.New("refsolver: GetValue: no model (last check was not satisfiable)")
	}
	return s.eval(rt, s.model)
}

// GetUnsatCore returns the core computed by the most recent UNSAT
// CheckSatAssuming.
func (s *Solver) GetUnsatCore() (map[mbic3.Term]struct{}, error) {
	if s.lastCore == nil {
		return nil, errors.New("refsolver: GetUnsatCore: no core (last check was not unsatisfiable)")
	}
	return s.lastCore, nil
}

// satisfyingAssignment exhaustively searches for an assignment to every
// registered symbol that makes every term in conjuncts evaluate true,
// returning the first one found (if any).
func (s *Solver) satisfyingAssignment(conjuncts []mbic3.Term) (map[*term]*term, bool, error) {
	totalBits := 0
	for _, sym := range s.symbols {
		switch sym.sort.Kind {
		case mbic3.SortBool:
			totalBits++
		case mbic3.SortBitVec:
			totalBits += sym.sort.Width
		default:
			return nil, false, errors.Errorf("refsolver: symbol %q has non-enumerable sort %s", sym.name, sym.sort)
		}
	}
	if totalBits > s.maxEnumBits {
		return nil, false, errors.Errorf("refsolver: %d bits of symbol state exceed the enumeration cap of %d", totalBits, s.maxEnumBits)
	}

	assignment := make(map[*term]*term, len(s.symbols))
	return s.enumerate(s.symbols, 0, assignment, conjuncts)
}

func (s *Solver) enumerate(syms []*term, idx int, assignment map[*term]*term, conjuncts []mbic3.Term) (map[*term]*term, bool, error) {
	if idx == len(syms) {
		ok, err := s.evalAllTrue(conjuncts, assignment)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		snap := make(map[*term]*term, len(assignment))
		for k, v := range assignment {
			snap[k] = v
		}
		return snap, true, nil
	}

	sym := syms[idx]
	domain, err := s.domainValues(sym.sort)
	if err != nil {
		return nil, false, err
	}
	for _, v := range domain {
		assignment[sym] = v
		model, found, err := s.enumerate(syms, idx+1, assignment, conjuncts)
		if err != nil {
			return nil, false, err
		}
		if found {
			return model, true, nil
		}
	}
	delete(assignment, sym)
	return nil, false, nil
}

func (s *Solver) domainValues(sort mbic3.Sort) ([]*term, error) {
	switch sort.Kind {
	case mbic3.SortBool:
		f, err := s.MakeValue(sort, false)
		if err != nil {
			return nil, err
		}
		t, err := s.MakeValue(sort, true)
		if err != nil {
			return nil, err
		}
		return []*term{f.(*term), t.(*term)}, nil
	case mbic3.SortBitVec:
		hi := mask(sort.Width)
		out := make([]*term, 0, hi+1)
		for v := int64(0); v <= hi; v++ {
			vt, err := s.MakeValue(sort, v)
			if err != nil {
				return nil, err
			}
			out = append(out, vt.(*term))
		}
		return out, nil
	default:
		return nil, errors.Errorf("refsolver: sort %s has no enumerable domain", sort)
	}
}

func (s *Solver) evalAllTrue(conjuncts []mbic3.Term, assignment map[*term]*term) (bool, error) {
	for _, c := range conjuncts {
		v, err := s.eval(c, assignment)
		if err != nil {
			return false, err
		}
		if v.lit != true {
			return false, nil
		}
	}
	return true, nil
}

// eval evaluates t under assignment, returning an interned value term of
// t's sort. assignment must already bind every symbol t transitively
// mentions.
func (s *Solver) eval(t mbic3.Term, assignment map[*term]*term) (*term, error) {
	rt, err := asTerm(t)
	if err != nil {
		return nil, err
	}
	switch rt.kind {
	case kindValue:
		return rt, nil
	case kindSymbol:
		v, ok := assignment[rt]
		if !ok {
			return nil, errors.Errorf("refsolver: eval: symbol %q has no assignment", rt.name)
		}
		return v, nil
	}

	args := make([]*term, len(rt.args))
	for i, a := range rt.args {
		av, err := s.eval(a, assignment)
		if err != nil {
			return nil, err
		}
		args[i] = av
	}

	switch rt.op {
	case mbic3.OpAnd:
		v := true
		for _, a := range args {
			v = v && a.lit.(bool)
		}
		return s.boolValue(v)
	case mbic3.OpOr:
		v := false
		for _, a := range args {
			v = v || a.lit.(bool)
		}
		return s.boolValue(v)
	case mbic3.OpNot:
		return s.boolValue(!args[0].lit.(bool))
	case mbic3.OpImplies:
		return s.boolValue(!args[0].lit.(bool) || args[1].lit.(bool))
	case mbic3.OpEqual:
		return s.boolValue(valuesEqual(args[0], args[1]))
	case mbic3.OpIte:
		if args[0].lit.(bool) {
			return args[1], nil
		}
		return args[2], nil

	case mbic3.OpBVUle:
		return s.boolValue(args[0].lit.(int64) <= args[1].lit.(int64))
	case mbic3.OpBVUlt:
		return s.boolValue(args[0].lit.(int64) < args[1].lit.(int64))
	case mbic3.OpBVUge:
		return s.boolValue(args[0].lit.(int64) >= args[1].lit.(int64))
	case mbic3.OpBVUgt:
		return s.boolValue(args[0].lit.(int64) > args[1].lit.(int64))

	case mbic3.OpBVNot:
		return s.bvValue(rt.sort, ^args[0].lit.(int64))
	case mbic3.OpBVAnd:
		v := args[0].lit.(int64)
		for _, a := range args[1:] {
			v &= a.lit.(int64)
		}
		return s.bvValue(rt.sort, v)
	case mbic3.OpBVOr:
		v := args[0].lit.(int64)
		for _, a := range args[1:] {
			v |= a.lit.(int64)
		}
		return s.bvValue(rt.sort, v)
	case mbic3.OpBVXor:
		v := args[0].lit.(int64)
		for _, a := range args[1:] {
			v ^= a.lit.(int64)
		}
		return s.bvValue(rt.sort, v)
	case mbic3.OpBVAdd:
		v := args[0].lit.(int64)
		for _, a := range args[1:] {
			v += a.lit.(int64)
		}
		return s.bvValue(rt.sort, v)
	case mbic3.OpBVRotateLeft1:
		w := rt.sort.Width
		v := args[0].lit.(int64)
		topBit := (v >> uint(w-1)) & 1
		rotated := ((v << 1) | topBit) & mask(w)
		return s.bvValue(rt.sort, rotated)
	case mbic3.OpBVPopcountEq:
		w := args[0].sort.Width
		count := bits.OnesCount64(uint64(args[0].lit.(int64)) & uint64(mask(w)))
		return s.boolValue(int64(count) == args[1].lit.(int64))

	case mbic3.OpLe:
		return s.boolValue(args[0].lit.(int64) <= args[1].lit.(int64))
	case mbic3.OpLt:
		return s.boolValue(args[0].lit.(int64) < args[1].lit.(int64))
	case mbic3.OpGe:
		return s.boolValue(args[0].lit.(int64) >= args[1].lit.(int64))
	case mbic3.OpGt:
		return s.boolValue(args[0].lit.(int64) > args[1].lit.(int64))

	default:
		return nil, errors.Errorf("refsolver: eval: unsupported op %s", rt.op)
	}
}

func valuesEqual(a, b *term) bool {
	if a.sort.Kind == mbic3.SortBool {
		return a.lit.(bool) == b.lit.(bool)
	}
	return a.lit.(int64) == b.lit.(int64)
}

func (s *Solver) boolValue(v bool) (*term, error) {
	t, err := s.MakeValue(mbic3.BoolSort, v)
	if err != nil {
		return nil, err
	}
	return t.(*term), nil
}

func (s *Solver) bvValue(sort mbic3.Sort, v int64) (*term, error) {
	t, err := s.MakeValue(sort, v&mask(sort.Width))
	if err != nil {
		return nil, err
	}
	return t.(*term), nil
}

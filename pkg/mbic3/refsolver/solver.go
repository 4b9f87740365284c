package refsolver

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitrdm/mbic3/pkg/mbic3"
)

// Solver is the enumerative mbic3.Solver / mbic3.InterpolatingSolver
// implementation. The zero value is not usable; construct with New.
type Solver struct {
	interned map[string]*term
	symbols  []*term // insertion order, for deterministic enumeration

	scopes [][]mbic3.Term // scopes[0] is the base scope; Push appends, Pop removes

	model map[*term]*term // last satisfying assignment, keyed by symbol term

	lastCore map[mbic3.Term]struct{} // unsat core of the most recent UNSAT query

	opts map[string]string

	// maxEnumBits caps the total number of bits this backend will ever
	// enumerate across all registered symbols in one CheckSat(Assuming)
	// call. It exists purely so a misuse of this reference backend (wiring
	// it against a transition system too large for brute-force search)
	// fails fast with a clear error instead of hanging.
	maxEnumBits int
}

// New constructs an empty enumerative solver. maxEnumBits bounds how many
// bits of combined Bool/BitVec symbol state it will enumerate per query;
// pass 0 for the default of 24 (16M assignments), ample for the spec §8
// reference transition systems and their tests.
func New(maxEnumBits int) *Solver {
	if maxEnumBits <= 0 {
		maxEnumBits = 24
	}
	return &Solver{
		interned:    make(map[string]*term),
		scopes:      [][]mbic3.Term{nil},
		opts:        make(map[string]string),
		maxEnumBits: maxEnumBits,
	}
}

func asTerm(t mbic3.Term) (*term, error) {
	rt, ok := t.(*term)
	if !ok {
		return nil, errors.Errorf("refsolver: term %v was not produced by this solver", t)
	}
	return rt, nil
}

func asTerms(ts []mbic3.Term) ([]*term, error) {
	out := make([]*term, len(ts))
	for i, t := range ts {
		rt, err := asTerm(t)
		if err != nil {
			return nil, err
		}
		out[i] = rt
	}
	return out, nil
}

// MakeSort constructs a Sort; args[0] carries the BitVec width.
func (s *Solver) MakeSort(kind mbic3.SortKind, args ...int) (mbic3.Sort, error) {
	switch kind {
	case mbic3.SortBool:
		return mbic3.BoolSort, nil
	case mbic3.SortBitVec:
		width := 1
		if len(args) > 0 {
			width = args[0]
		}
		if width <= 0 {
			return mbic3.Sort{}, errors.Errorf("refsolver: MakeSort: non-positive BitVec width %d", width)
		}
		return mbic3.BitVecSort(width), nil
	case mbic3.SortInt:
		return mbic3.IntSort, nil
	default:
		return mbic3.Sort{}, errors.Errorf("refsolver: MakeSort: unsupported sort kind %s", kind)
	}
}

// MakeSymbol interns a leaf variable. Calling it twice with the same name
// and sort returns the identical term.
func (s *Solver) MakeSymbol(name string, sort mbic3.Sort) (mbic3.Term, error) {
	key := "sym:" + name + ":" + sortKey(sort)
	if t, ok := s.interned[key]; ok {
		return t, nil
	}
	t := &term{kind: kindSymbol, sort: sort, name: name, key: key}
	s.interned[key] = t
	s.symbols = append(s.symbols, t)
	return t, nil
}

// MakeValue interns a constant. literal is a bool for Bool, and an
// int/int64 for BitVec (masked to its width, unsigned) and Int.
func (s *Solver) MakeValue(sort mbic3.Sort, literal any) (mbic3.Term, error) {
	norm, err := normalizeLiteral(sort, literal)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("val:%s:%v", sortKey(sort), norm)
	if t, ok := s.interned[key]; ok {
		return t, nil
	}
	t := &term{kind: kindValue, sort: sort, lit: norm, key: key}
	s.interned[key] = t
	return t, nil
}

func normalizeLiteral(sort mbic3.Sort, literal any) (any, error) {
	switch sort.Kind {
	case mbic3.SortBool:
		b, ok := literal.(bool)
		if !ok {
			return nil, errors.Errorf("refsolver: MakeValue: Bool literal must be bool, got %T", literal)
		}
		return b, nil
	case mbic3.SortBitVec:
		v, err := toInt64(literal)
		if err != nil {
			return nil, err
		}
		return v & mask(sort.Width), nil
	case mbic3.SortInt:
		v, err := toInt64(literal)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, errors.Errorf("refsolver: MakeValue: unsupported sort %s", sort)
	}
}

func toInt64(literal any) (int64, error) {
	switch v := literal.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, errors.Errorf("refsolver: literal %v (%T) is not an integer", literal, literal)
	}
}

func mask(width int) int64 {
	if width <= 0 {
		return 0
	}
	if width >= 63 {
		return -1
	}
	return (int64(1) << uint(width)) - 1
}

// MakeTerm builds (or interns) a compound application of op to args.
func (s *Solver) MakeTerm(op mbic3.Op, args ...mbic3.Term) (mbic3.Term, error) {
	rargs, err := asTerms(args)
	if err != nil {
		return nil, err
	}
	sort, err := resultSort(op, rargs)
	if err != nil {
		return nil, err
	}

	anyArgs := make([]mbic3.Term, len(rargs))
	var keyBuf strings.Builder
	for i, a := range rargs {
		anyArgs[i] = a
		keyBuf.WriteString(a.key)
		keyBuf.WriteByte(',')
	}
	key := fmt.Sprintf("op:%s:%s:%s", op, sortKey(sort), keyBuf.String())
	if t, ok := s.interned[key]; ok {
		return t, nil
	}
	t := &term{kind: kindCompound, sort: sort, op: op, args: anyArgs, key: key}
	s.interned[key] = t
	return t, nil
}

func resultSort(op mbic3.Op, args []*term) (mbic3.Sort, error) {
	switch op {
	case mbic3.OpAnd, mbic3.OpOr, mbic3.OpNot, mbic3.OpImplies, mbic3.OpEqual,
		mbic3.OpBVUle, mbic3.OpBVUlt, mbic3.OpBVUge, mbic3.OpBVUgt,
		mbic3.OpLe, mbic3.OpLt, mbic3.OpGe, mbic3.OpGt, mbic3.OpBVPopcountEq:
		return mbic3.BoolSort, nil
	case mbic3.OpIte:
		if len(args) != 3 {
			return mbic3.Sort{}, errors.Errorf("refsolver: ite needs 3 args, got %d", len(args))
		}
		return args[1].sort, nil
	case mbic3.OpBVNot, mbic3.OpBVAnd, mbic3.OpBVOr, mbic3.OpBVXor, mbic3.OpBVAdd, mbic3.OpBVRotateLeft1:
		if len(args) == 0 {
			return mbic3.Sort{}, errors.New("refsolver: bitvector op needs at least 1 arg")
		}
		return args[0].sort, nil
	default:
		return mbic3.Sort{}, errors.Errorf("refsolver: MakeTerm: unsupported op %s", op)
	}
}

// Push opens a new assertion scope.
func (s *Solver) Push() error {
	s.scopes = append(s.scopes, nil)
	return nil
}

// Pop discards the most recently opened scope.
func (s *Solver) Pop() error {
	if len(s.scopes) <= 1 {
		return errors.New("refsolver: Pop without a matching Push")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return nil
}

// AssertFormula adds t as a permanent assertion in the current scope.
func (s *Solver) AssertFormula(t mbic3.Term) error {
	rt, err := asTerm(t)
	if err != nil {
		return err
	}
	if rt.sort.Kind != mbic3.SortBool {
		return errors.Errorf("refsolver: AssertFormula: term is not Bool-sorted: %s", t)
	}
	top := len(s.scopes) - 1
	s.scopes[top] = append(s.scopes[top], t)
	return nil
}

func (s *Solver) allAssertions() []mbic3.Term {
	var out []mbic3.Term
	for _, scope := range s.scopes {
		out = append(out, scope...)
	}
	return out
}

// SetOpt records a solver option. This backend always produces models and
// unsat cores, so every recognized option name is accepted and simply
// stored for introspection; it has no effect on behavior.
func (s *Solver) SetOpt(name, value string) error {
	s.opts[name] = value
	return nil
}

// Substitute rewrites t by replacing every subterm found as a key in m,
// rebuilding compound terms bottom-up through MakeTerm so the result stays
// interned.
func (s *Solver) Substitute(t mbic3.Term, m map[mbic3.Term]mbic3.Term) (mbic3.Term, error) {
	memo := make(map[mbic3.Term]mbic3.Term)
	return s.substitute(t, m, memo)
}

func (s *Solver) substitute(t mbic3.Term, m map[mbic3.Term]mbic3.Term, memo map[mbic3.Term]mbic3.Term) (mbic3.Term, error) {
	if r, ok := memo[t]; ok {
		return r, nil
	}
	if r, ok := m[t]; ok {
		memo[t] = r
		return r, nil
	}
	rt, err := asTerm(t)
	if err != nil {
		return nil, err
	}
	if rt.kind != kindCompound {
		memo[t] = t
		return t, nil
	}

	newArgs := make([]mbic3.Term, len(rt.args))
	changed := false
	for i, a := range rt.args {
		na, err := s.substitute(a, m, memo)
		if err != nil {
			return nil, err
		}
		newArgs[i] = na
		if na != a {
			changed = true
		}
	}
	if !changed {
		memo[t] = t
		return t, nil
	}
	r, err := s.MakeTerm(rt.op, newArgs...)
	if err != nil {
		return nil, err
	}
	memo[t] = r
	return r, nil
}

// ResetAssertions discards every assertion and scope, keeping the interning
// table (and hence every MakeSort/MakeSymbol/MakeValue/MakeTerm result
// produced so far) valid. Symbols deliberately survive a reset: the
// interpolating pair Engine wires up creates its state/next/input symbols
// once in initializeInterpolation and expects them to keep meaning the same
// thing across every GetInterpolant call made over the life of a Prove run.
func (s *Solver) ResetAssertions() error {
	s.scopes = [][]mbic3.Term{nil}
	s.model = nil
	s.lastCore = nil
	return nil
}

package refsolver_test

import (
	"testing"

	"github.com/gitrdm/mbic3/pkg/mbic3"
	"github.com/gitrdm/mbic3/pkg/mbic3/refsolver"
)

func TestMakeSymbolInterns(t *testing.T) {
	s := refsolver.New(0)
	a1, err := s.MakeSymbol("a", mbic3.BoolSort)
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	a2, err := s.MakeSymbol("a", mbic3.BoolSort)
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("two MakeSymbol calls with the same name/sort returned distinct terms")
	}
	if !a1.Equal(a2) {
		t.Fatalf("Equal disagrees with pointer identity for interned symbols")
	}
}

func TestMakeTermInterns(t *testing.T) {
	s := refsolver.New(0)
	a, _ := s.MakeSymbol("a", mbic3.BoolSort)
	b, _ := s.MakeSymbol("b", mbic3.BoolSort)

	t1, err := s.MakeTerm(mbic3.OpAnd, a, b)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	t2, err := s.MakeTerm(mbic3.OpAnd, a, b)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	if t1 != t2 {
		t.Fatalf("two structurally identical MakeTerm calls returned distinct terms")
	}
}

func TestCheckSatSimpleSatAndUnsat(t *testing.T) {
	s := refsolver.New(0)
	a, _ := s.MakeSymbol("a", mbic3.BoolSort)

	if err := s.AssertFormula(a); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	res, err := s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSat(a) = %s, want sat", res)
	}
	val, err := s.GetValue(a)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if lit, ok := val.(interface{ Literal() any }); !ok || lit.Literal() != true {
		t.Fatalf("GetValue(a) = %v, want true", val)
	}

	notA, err := s.MakeTerm(mbic3.OpNot, a)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	if err := s.AssertFormula(notA); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	res, err = s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Unsat {
		t.Fatalf("CheckSat(a, !a) = %s, want unsat", res)
	}
}

func TestCheckSatAssumingDoesNotPersistAssumptions(t *testing.T) {
	s := refsolver.New(0)
	a, _ := s.MakeSymbol("a", mbic3.BoolSort)
	notA, _ := s.MakeTerm(mbic3.OpNot, a)

	res, err := s.CheckSatAssuming([]mbic3.Term{notA})
	if err != nil {
		t.Fatalf("CheckSatAssuming: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSatAssuming(!a) = %s, want sat", res)
	}

	// Without any persistent assertions, a bare CheckSat must still be sat
	// regardless of the assumption just tried.
	res, err = s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSat after a discarded assumption = %s, want sat", res)
	}
}

func TestGetUnsatCoreDropsIrrelevantAssumption(t *testing.T) {
	s := refsolver.New(0)
	a, _ := s.MakeSymbol("a", mbic3.BoolSort)
	b, _ := s.MakeSymbol("b", mbic3.BoolSort)
	notA, _ := s.MakeTerm(mbic3.OpNot, a)

	if err := s.AssertFormula(a); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	// b is irrelevant to the contradiction between a and notA.
	res, err := s.CheckSatAssuming([]mbic3.Term{notA, b})
	if err != nil {
		t.Fatalf("CheckSatAssuming: %v", err)
	}
	if res != mbic3.Unsat {
		t.Fatalf("CheckSatAssuming(!a, b) with a asserted = %s, want unsat", res)
	}

	core, err := s.GetUnsatCore()
	if err != nil {
		t.Fatalf("GetUnsatCore: %v", err)
	}
	if _, ok := core[notA]; !ok {
		t.Fatalf("unsat core %v does not contain notA", core)
	}
	if _, ok := core[b]; ok {
		t.Fatalf("unsat core %v retained the irrelevant assumption b", core)
	}
}

func TestPushPopScoping(t *testing.T) {
	s := refsolver.New(0)
	a, _ := s.MakeSymbol("a", mbic3.BoolSort)
	notA, _ := s.MakeTerm(mbic3.OpNot, a)

	if err := s.AssertFormula(a); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	if err := s.Push(); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.AssertFormula(notA); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	res, err := s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Unsat {
		t.Fatalf("CheckSat(a, !a) inside the pushed scope = %s, want unsat", res)
	}
	if err := s.Pop(); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	res, err = s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSat(a) after Pop = %s, want sat", res)
	}
	if err := s.Pop(); err == nil {
		t.Fatalf("Pop without a matching Push did not error")
	}
}

func TestBitVecArithmeticWraps(t *testing.T) {
	s := refsolver.New(0)
	sort := mbic3.BitVecSort(3)
	c, _ := s.MakeSymbol("c", sort)
	seven, err := s.MakeValue(sort, 7)
	if err != nil {
		t.Fatalf("MakeValue: %v", err)
	}
	one, err := s.MakeValue(sort, 1)
	if err != nil {
		t.Fatalf("MakeValue: %v", err)
	}
	zero, err := s.MakeValue(sort, 0)
	if err != nil {
		t.Fatalf("MakeValue: %v", err)
	}

	eqC, err := s.MakeTerm(mbic3.OpEqual, c, seven)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	sum, err := s.MakeTerm(mbic3.OpBVAdd, c, one)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	eqWrap, err := s.MakeTerm(mbic3.OpEqual, sum, zero)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}

	if err := s.AssertFormula(eqC); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	if err := s.AssertFormula(eqWrap); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	res, err := s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSat(c=7, c+1=0) = %s, want sat (3-bit addition must wrap mod 8)", res)
	}
}

func TestGetInterpolantSoundness(t *testing.T) {
	s := refsolver.New(0)
	// a := x = 1 (BitVec 2), shared with b via x.
	sort := mbic3.BitVecSort(2)
	x, _ := s.MakeSymbol("x", sort)
	y, _ := s.MakeSymbol("y", sort)
	one, _ := s.MakeValue(sort, 1)
	two, _ := s.MakeValue(sort, 2)

	a, err := s.MakeTerm(mbic3.OpEqual, x, one)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	xEqY, err := s.MakeTerm(mbic3.OpEqual, x, y)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	yEqTwo, err := s.MakeTerm(mbic3.OpEqual, y, two)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	b, err := s.MakeTerm(mbic3.OpAnd, xEqY, yEqTwo)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}

	interp, err := s.GetInterpolant(a, b)
	if err != nil {
		t.Fatalf("GetInterpolant: %v", err)
	}

	// a -> interp: a ∧ ¬interp must be unsat.
	notInterp, err := s.MakeTerm(mbic3.OpNot, interp)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	res, err := s.CheckSatAssuming([]mbic3.Term{a, notInterp})
	if err != nil {
		t.Fatalf("CheckSatAssuming: %v", err)
	}
	if res != mbic3.Unsat {
		t.Fatalf("a ∧ ¬interpolant is %s, want unsat (interpolant must be implied by a)", res)
	}

	// interp ∧ b must be unsat.
	res, err = s.CheckSatAssuming([]mbic3.Term{interp, b})
	if err != nil {
		t.Fatalf("CheckSatAssuming: %v", err)
	}
	if res != mbic3.Unsat {
		t.Fatalf("interpolant ∧ b is %s, want unsat", res)
	}

	// interp must not mention y (vars(a) ∩ vars(b) = {x} only, since y never
	// appears in a).
	if containsSymbol(interp, "y") {
		t.Fatalf("interpolant %s mentions y, outside vars(a) ∩ vars(b)", interp)
	}
}

func containsSymbol(t mbic3.Term, name string) bool {
	if n, ok := t.(interface{ Name() string }); ok && t.IsSymbolicConst() && n.Name() == name {
		return true
	}
	for _, c := range t.Children() {
		if containsSymbol(c, name) {
			return true
		}
	}
	return false
}

func TestSubstituteRebuildsCompound(t *testing.T) {
	s := refsolver.New(0)
	x, _ := s.MakeSymbol("x", mbic3.BoolSort)
	y, _ := s.MakeSymbol("y", mbic3.BoolSort)
	z, _ := s.MakeSymbol("z", mbic3.BoolSort)

	formula, err := s.MakeTerm(mbic3.OpAnd, x, y)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	replaced, err := s.Substitute(formula, map[mbic3.Term]mbic3.Term{x: z})
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	want, err := s.MakeTerm(mbic3.OpAnd, z, y)
	if err != nil {
		t.Fatalf("MakeTerm: %v", err)
	}
	if !replaced.Equal(want) {
		t.Fatalf("Substitute(x -> z) = %s, want %s", replaced, want)
	}
}

func TestResetAssertionsKeepsSymbols(t *testing.T) {
	s := refsolver.New(0)
	x, err := s.MakeSymbol("x", mbic3.BoolSort)
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if err := s.AssertFormula(x); err != nil {
		t.Fatalf("AssertFormula: %v", err)
	}
	if err := s.ResetAssertions(); err != nil {
		t.Fatalf("ResetAssertions: %v", err)
	}

	res, err := s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != mbic3.Sat {
		t.Fatalf("CheckSat after ResetAssertions = %s, want sat (assertion must be gone)", res)
	}

	x2, err := s.MakeSymbol("x", mbic3.BoolSort)
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if x != x2 {
		t.Fatalf("symbol x did not survive ResetAssertions as the same interned term")
	}
}

func TestMakeSortRejectsNonPositiveBitVecWidth(t *testing.T) {
	s := refsolver.New(0)
	if _, err := s.MakeSort(mbic3.SortBitVec, 0); err == nil {
		t.Fatalf("MakeSort(BitVec, 0) did not error")
	}
}

func TestMaxEnumBitsCapsSearch(t *testing.T) {
	s := refsolver.New(4)
	// 5 bits total (one BitVec of width 5) exceeds a cap of 4.
	sort := mbic3.BitVecSort(5)
	if _, err := s.MakeSymbol("big", sort); err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if _, err := s.CheckSat(); err == nil {
		t.Fatalf("CheckSat did not error when registered symbol state exceeds maxEnumBits")
	}
}

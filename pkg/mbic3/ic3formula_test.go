package mbic3_test

import (
	"testing"

	"github.com/gitrdm/mbic3/pkg/mbic3"
	"github.com/gitrdm/mbic3/pkg/mbic3/refsolver"
)

func boolSym(t *testing.T, env *mbic3.TermEnv, name string) mbic3.Term {
	t.Helper()
	s, err := env.MakeSymbol(name, mbic3.BoolSort)
	if err != nil {
		t.Fatalf("MakeSymbol(%s): %v", name, err)
	}
	return s
}

// TestIC3FormulaNegationInvolution checks that Negate(Negate(f)) reproduces
// f's own Term by construction, and that the intermediate negation swaps
// cube/clause shape (De Morgan), matching the spec's invariant that
// Negate(cube) always yields the dual clause.
func TestIC3FormulaNegationInvolution(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	a := boolSym(t, env, "a")
	b := boolSym(t, env, "b")

	cube, err := mbic3.Conjunction(env, []mbic3.Term{a, b})
	if err != nil {
		t.Fatalf("Conjunction: %v", err)
	}
	if cube.IsDisjunction() {
		t.Fatalf("fresh Conjunction reports IsDisjunction() == true")
	}

	clause, err := mbic3.Negate(env, cube)
	if err != nil {
		t.Fatalf("Negate: %v", err)
	}
	if !clause.IsDisjunction() {
		t.Fatalf("Negate(cube) did not flip to a clause")
	}
	if len(clause.Children) != len(cube.Children) {
		t.Fatalf("Negate changed arity: got %d children, want %d", len(clause.Children), len(cube.Children))
	}

	back, err := mbic3.Negate(env, clause)
	if err != nil {
		t.Fatalf("Negate (second time): %v", err)
	}
	if back.IsDisjunction() {
		t.Fatalf("double negation did not return to a cube")
	}
	if !back.Term.Equal(cube.Term) {
		t.Fatalf("Negate(Negate(cube)).Term != cube.Term: got %s, want %s", back.Term, cube.Term)
	}
}

func TestIC3FormulaEmptyConjunctionIsTrue(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	cube, err := mbic3.Conjunction(env, nil)
	if err != nil {
		t.Fatalf("Conjunction(nil): %v", err)
	}
	want, _ := env.MakeValue(mbic3.BoolSort, true)
	if !cube.Term.Equal(want) {
		t.Fatalf("Conjunction(nil).Term = %s, want true", cube.Term)
	}
}

func TestIC3FormulaEmptyDisjunctionIsFalse(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	clause, err := mbic3.Disjunction(env, nil)
	if err != nil {
		t.Fatalf("Disjunction(nil): %v", err)
	}
	want, _ := env.MakeValue(mbic3.BoolSort, false)
	if !clause.Term.Equal(want) {
		t.Fatalf("Disjunction(nil).Term = %s, want false", clause.Term)
	}
}

func TestIC3FormulaCheckValid(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	a := boolSym(t, env, "a")
	bv, err := env.MakeSymbol("bv", mbic3.BitVecSort(4))
	if err != nil {
		t.Fatalf("MakeSymbol(bv): %v", err)
	}

	good, err := mbic3.Conjunction(env, []mbic3.Term{a})
	if err != nil {
		t.Fatalf("Conjunction: %v", err)
	}
	if !mbic3.CheckValid(good) {
		t.Fatalf("CheckValid rejected an all-Bool cube")
	}

	bad := mbic3.IC3Formula{Term: bv, Children: []mbic3.Term{bv}, Disjunction: false}
	if mbic3.CheckValid(bad) {
		t.Fatalf("CheckValid accepted a cube with a non-Bool child")
	}
}

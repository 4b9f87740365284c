package mbic3_test

import (
	"testing"

	"github.com/gitrdm/mbic3/pkg/mbic3"
	"github.com/gitrdm/mbic3/pkg/mbic3/refsolver"
)

// TestDisjointSetGroupsEqualValues exercises the congruence-grouping that
// Engine's predecessor generalization relies on: two keys added with Equal
// payload values end up in the same class, and Find on that class returns
// the member DefaultRank prefers. Payloads are not class members, so among
// the three non-value keys the lowest String form ("x") represents the class.
func TestDisjointSetGroupsEqualValues(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))

	x := boolSym(t, env, "x")
	y := boolSym(t, env, "y")
	z := boolSym(t, env, "z")
	trueVal, err := env.MakeValue(mbic3.BoolSort, true)
	if err != nil {
		t.Fatalf("MakeValue: %v", err)
	}

	ds := mbic3.NewDisjointSet(mbic3.DefaultRank)
	ds.Add(x, trueVal)
	ds.Add(y, trueVal)
	ds.Add(z, trueVal)

	if ds.Find(x) != ds.Find(y) || ds.Find(y) != ds.Find(z) {
		t.Fatalf("x, y, z assigned the same value did not end up in one class")
	}
	if !ds.Find(x).Equal(x) {
		t.Fatalf("Find(x) = %s, want %s (DefaultRank prefers the lowest String among non-values)", ds.Find(x), x)
	}
}

func TestDisjointSetSeparatesDistinctValues(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	x := boolSym(t, env, "x")
	y := boolSym(t, env, "y")
	tv, _ := env.MakeValue(mbic3.BoolSort, true)
	fv, _ := env.MakeValue(mbic3.BoolSort, false)

	ds := mbic3.NewDisjointSet(mbic3.DefaultRank)
	ds.Add(x, tv)
	ds.Add(y, fv)

	if ds.Find(x) == ds.Find(y) {
		t.Fatalf("x (true) and y (false) were merged into the same class")
	}
}

func TestDisjointSetFindOnUnseenKeyIsItself(t *testing.T) {
	env := mbic3.NewTermEnv(refsolver.New(0))
	x := boolSym(t, env, "x")
	ds := mbic3.NewDisjointSet(mbic3.DefaultRank)
	if ds.Find(x) != x {
		t.Fatalf("Find on a never-added key returned %v, want the key itself", ds.Find(x))
	}
}

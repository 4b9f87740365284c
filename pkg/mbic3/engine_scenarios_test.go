package mbic3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/mbic3/pkg/mbic3"
	"github.com/gitrdm/mbic3/pkg/mbic3/refsolver"
)

// buildTrivialSafety builds a single-Bool-variable system whose property is
// the constant true, so it holds vacuously for every reachable state.
func buildTrivialSafety(t *testing.T) (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver) {
	t.Helper()
	s := refsolver.New(0)
	env := mbic3.NewTermEnv(s)
	ts, err := mbic3.NewTransitionSystem(env)
	require.NoError(t, err)

	x, err := ts.MakeState("x", mbic3.BoolSort)
	require.NoError(t, err)
	require.NoError(t, ts.SetInit(x))
	nx, err := ts.Next(x)
	require.NoError(t, err)
	trans, err := env.MakeTerm(mbic3.OpEqual, nx, x)
	require.NoError(t, err)
	require.NoError(t, ts.SetTrans(trans))

	trueTerm, err := env.MakeValue(mbic3.BoolSort, true)
	require.NoError(t, err)
	return ts, mbic3.Property{Prop: trueTerm, Name: "trivially-true"}, s
}

func TestTrivialSafety(t *testing.T) {
	ts, prop, s := buildTrivialSafety(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	res, err := e.Prove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultTrue, res)

	inv, err := e.Invar()
	require.NoError(t, err)
	assert.NotNil(t, inv)
}

// buildTrivialUnsafety builds a single-Bool-variable system that starts
// false and is forced true on the very next step, violating a property that
// demands it stay false forever.
func buildTrivialUnsafety(t *testing.T) (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver) {
	t.Helper()
	s := refsolver.New(0)
	env := mbic3.NewTermEnv(s)
	ts, err := mbic3.NewTransitionSystem(env)
	require.NoError(t, err)

	x, err := ts.MakeState("x", mbic3.BoolSort)
	require.NoError(t, err)
	notX, err := env.MakeTerm(mbic3.OpNot, x)
	require.NoError(t, err)
	require.NoError(t, ts.SetInit(notX))

	nx, err := ts.Next(x)
	require.NoError(t, err)
	trueVal, err := env.MakeValue(mbic3.BoolSort, true)
	require.NoError(t, err)
	trans, err := env.MakeTerm(mbic3.OpEqual, nx, trueVal)
	require.NoError(t, err)
	require.NoError(t, ts.SetTrans(trans))

	prop := mbic3.Property{Prop: notX, Name: "x-never-true"}
	return ts, prop, s
}

func TestTrivialUnsafety(t *testing.T) {
	ts, prop, s := buildTrivialUnsafety(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	res, err := e.Prove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultFalse, res)

	trace, ok := e.Witness()
	require.True(t, ok)
	require.Len(t, trace, 2)

	x, _ := ts.Lookup("x")
	falseVal, _ := s.MakeValue(mbic3.BoolSort, false)
	trueVal, _ := s.MakeValue(mbic3.BoolSort, true)
	assert.True(t, trace[0][x].Equal(falseVal), "step 0 should be x=false (the initial state)")
	assert.True(t, trace[1][x].Equal(trueVal), "step 1 should be x=true (the violating state)")
}

// buildCounterWithBug builds a free-running 3-bit counter (wrapping mod 8)
// and a property violated exactly when the counter reaches 5.
func buildCounterWithBug(t *testing.T, seed int64) (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver) {
	t.Helper()
	s := refsolver.New(0)
	env := mbic3.NewTermEnv(s)
	ts, err := mbic3.NewTransitionSystem(env)
	require.NoError(t, err)

	sort3 := mbic3.BitVecSort(3)
	c, err := ts.MakeState("c", sort3)
	require.NoError(t, err)

	zero, err := env.MakeValue(sort3, 0)
	require.NoError(t, err)
	one, err := env.MakeValue(sort3, 1)
	require.NoError(t, err)
	five, err := env.MakeValue(sort3, 5)
	require.NoError(t, err)

	initEq, err := env.MakeTerm(mbic3.OpEqual, c, zero)
	require.NoError(t, err)
	require.NoError(t, ts.SetInit(initEq))

	nc, err := ts.Next(c)
	require.NoError(t, err)
	sum, err := env.MakeTerm(mbic3.OpBVAdd, c, one)
	require.NoError(t, err)
	trans, err := env.MakeTerm(mbic3.OpEqual, nc, sum)
	require.NoError(t, err)
	require.NoError(t, ts.SetTrans(trans))

	eqFive, err := env.MakeTerm(mbic3.OpEqual, c, five)
	require.NoError(t, err)
	propNe5, err := env.MakeTerm(mbic3.OpNot, eqFive)
	require.NoError(t, err)

	return ts, mbic3.Property{Prop: propNe5, Name: "counter-never-5"}, s
}

func TestCounterWithBoundedBug(t *testing.T) {
	ts, prop, s := buildCounterWithBug(t, 1)
	e, err := mbic3.NewEngine(ts, prop, s, mbic3.WithRandomSeed(1))
	require.NoError(t, err)

	res, err := e.CheckUntil(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, mbic3.ResultFalse, res)

	trace, ok := e.Witness()
	require.True(t, ok)
	require.Len(t, trace, 6)

	c, _ := ts.Lookup("c")
	sort3 := mbic3.BitVecSort(3)
	for i, want := range []int{0, 1, 2, 3, 4, 5} {
		wantTerm, err := s.MakeValue(sort3, want)
		require.NoError(t, err)
		assert.True(t, trace[i][c].Equal(wantTerm), "step %d: c = %v, want %d", i, trace[i][c], want)
	}
}

// buildTwoBitInvariant builds a two-Bool-state system where both variables
// start true and are never changed, so their conjunction is an invariant.
func buildTwoBitInvariant(t *testing.T) (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver) {
	t.Helper()
	s := refsolver.New(0)
	env := mbic3.NewTermEnv(s)
	ts, err := mbic3.NewTransitionSystem(env)
	require.NoError(t, err)

	a, err := ts.MakeState("a", mbic3.BoolSort)
	require.NoError(t, err)
	b, err := ts.MakeState("b", mbic3.BoolSort)
	require.NoError(t, err)

	initAB, err := env.MakeTerm(mbic3.OpAnd, a, b)
	require.NoError(t, err)
	require.NoError(t, ts.SetInit(initAB))

	na, err := ts.Next(a)
	require.NoError(t, err)
	nb, err := ts.Next(b)
	require.NoError(t, err)
	eqA, err := env.MakeTerm(mbic3.OpEqual, na, a)
	require.NoError(t, err)
	eqB, err := env.MakeTerm(mbic3.OpEqual, nb, b)
	require.NoError(t, err)
	trans, err := env.MakeTerm(mbic3.OpAnd, eqA, eqB)
	require.NoError(t, err)
	require.NoError(t, ts.SetTrans(trans))

	prop, err := env.MakeTerm(mbic3.OpAnd, a, b)
	require.NoError(t, err)
	return ts, mbic3.Property{Prop: prop, Name: "a-and-b"}, s
}

func TestTwoBitInvariant(t *testing.T) {
	ts, prop, s := buildTwoBitInvariant(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	res, err := e.Prove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultTrue, res)
}

// buildShifterParity builds a 4-bit register initialized to a single set bit
// and rotated left each step, so popcount(r) == 1 is an invariant.
func buildShifterParity(t *testing.T) (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver) {
	t.Helper()
	s := refsolver.New(0)
	env := mbic3.NewTermEnv(s)
	ts, err := mbic3.NewTransitionSystem(env)
	require.NoError(t, err)

	sort4 := mbic3.BitVecSort(4)
	r, err := ts.MakeState("r", sort4)
	require.NoError(t, err)

	one4, err := env.MakeValue(sort4, 1)
	require.NoError(t, err)
	initEq, err := env.MakeTerm(mbic3.OpEqual, r, one4)
	require.NoError(t, err)
	require.NoError(t, ts.SetInit(initEq))

	nr, err := ts.Next(r)
	require.NoError(t, err)
	rotated, err := env.MakeTerm(mbic3.OpBVRotateLeft1, r)
	require.NoError(t, err)
	trans, err := env.MakeTerm(mbic3.OpEqual, nr, rotated)
	require.NoError(t, err)
	require.NoError(t, ts.SetTrans(trans))

	oneCount, err := env.MakeValue(mbic3.IntSort, 1)
	require.NoError(t, err)
	prop, err := env.MakeTerm(mbic3.OpBVPopcountEq, r, oneCount)
	require.NoError(t, err)

	return ts, mbic3.Property{Prop: prop, Name: "single-bit-rotation"}, s
}

func TestShifterParityInvariant(t *testing.T) {
	ts, prop, s := buildShifterParity(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	res, err := e.CheckUntil(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultTrue, res)
}

// TestDeterminismUnderSeed checks that two independently constructed
// engines, seeded identically, on the same (bugged) scenario, discover the
// same counterexample trace.
func TestDeterminismUnderSeed(t *testing.T) {
	run := func() (mbic3.Result, []map[mbic3.Term]mbic3.Term, *mbic3.TransitionSystem) {
		ts, prop, s := buildCounterWithBug(t, 7)
		e, err := mbic3.NewEngine(ts, prop, s, mbic3.WithRandomSeed(7))
		require.NoError(t, err)
		res, err := e.CheckUntil(context.Background(), 20)
		require.NoError(t, err)
		trace, ok := e.Witness()
		require.True(t, ok)
		return res, trace, ts
	}

	res1, trace1, ts1 := run()
	res2, trace2, ts2 := run()

	assert.Equal(t, res1, res2)
	require.Equal(t, len(trace1), len(trace2))

	c1, _ := ts1.Lookup("c")
	c2, _ := ts2.Lookup("c")
	for i := range trace1 {
		assert.True(t, trace1[i][c1].Equal(trace2[i][c2]), "step %d diverged between seeded runs", i)
	}
}

// TestBoundIsHonored checks that CheckUntil never claims more than it has
// proven: a bound too small to let the engine reach a fixpoint must return
// ResultUnknown, never ResultTrue or ResultFalse, on a system that is in
// fact safe.
func TestBoundIsHonored(t *testing.T) {
	ts, prop, s := buildTwoBitInvariant(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	res, err := e.CheckUntil(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultUnknown, res, "bound of 1 should be too tight to let the engine reach a fixpoint")
}

// TestSolverContextHygiene checks that repeated top-level calls into the
// same engine never leave the solver's push/pop depth unbalanced: the
// engine panics internally (assertContextZero) if it does, so simply
// surviving two successive Prove calls without panicking is the assertion.
func TestSolverContextHygiene(t *testing.T) {
	ts, prop, s := buildTwoBitInvariant(t)
	e, err := mbic3.NewEngine(ts, prop, s)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		res, err := e.Prove(context.Background())
		require.NoError(t, err)
		assert.Equal(t, mbic3.ResultTrue, res)
	})
	assert.NotPanics(t, func() {
		res, err := e.Prove(context.Background())
		require.NoError(t, err)
		assert.Equal(t, mbic3.ResultTrue, res)
	})
}

// TestInterpolationModeProvesInvariant exercises IndGenMode 2 end to end: a
// second refsolver instance plays the interpolating solver, and the engine
// must still converge to a correct result, confirming GetInterpolant's
// soundness properties (checked directly in refsolver_test.go) hold up
// through the translator plumbing that feeds them into real clauses.
func TestInterpolationModeProvesInvariant(t *testing.T) {
	ts, prop, s := buildTwoBitInvariant(t)
	interp := refsolver.New(0)
	e, err := mbic3.NewEngine(ts, prop, s,
		mbic3.WithIndGenMode(2),
		mbic3.WithInterpolatingSolver(interp),
	)
	require.NoError(t, err)

	res, err := e.Prove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mbic3.ResultTrue, res)
}

// TestFunctionalPreimageCounterBug exercises WithFunctionalPreimage(true)
// end to end. The counter scenario has no input variables
// (ts.IsDeterministic() holds), so generalizePredecessor takes the
// functional branch every time predecessor generalization runs — substitute
// the model's input/next-state values into trans, conjunctively partition
// the result, and use that as the preimage cube instead of a DisjointSet
// dedup. The bug is 5 transitions deep, so blocking the counterexample
// drives predecessor generalization across multiple frames before the
// engine gives up and reports the trace, making this scenario exercise the
// functional path far more than a 1-step system would.
func TestFunctionalPreimageCounterBug(t *testing.T) {
	ts, prop, s := buildCounterWithBug(t, 3)
	require.True(t, ts.IsDeterministic(), "counter scenario must have no input variables for the functional preimage path to engage")

	e, err := mbic3.NewEngine(ts, prop, s,
		mbic3.WithRandomSeed(3),
		mbic3.WithPredecessorGeneralization(true),
		mbic3.WithFunctionalPreimage(true),
	)
	require.NoError(t, err)

	res, err := e.CheckUntil(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, mbic3.ResultFalse, res)

	trace, ok := e.Witness()
	require.True(t, ok)
	require.Len(t, trace, 6)

	c, _ := ts.Lookup("c")
	sort3 := mbic3.BitVecSort(3)
	for i, want := range []int{0, 1, 2, 3, 4, 5} {
		wantTerm, err := s.MakeValue(sort3, want)
		require.NoError(t, err)
		assert.True(t, trace[i][c].Equal(wantTerm), "step %d: c = %v, want %d", i, trace[i][c], want)
	}
}

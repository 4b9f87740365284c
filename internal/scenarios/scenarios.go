// Package scenarios builds the small transition systems used by the
// mbic3 CLI. Each scenario owns its
// own refsolver.Solver so scenarios never interfere with each other.
package scenarios

import (
	"github.com/pkg/errors"

	"github.com/gitrdm/mbic3/pkg/mbic3"
	"github.com/gitrdm/mbic3/pkg/mbic3/refsolver"
)

// Scenario names a transition system plus the safety property to check
// against it.
type Scenario struct {
	Name        string
	Description string
	Build       func() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error)
}

// All is the registry consulted by cmd/mbic3, in definition order.
var All = []Scenario{
	{
		Name:        "trivial-safety",
		Description: "a single Bool held true forever; the property is immediately inductive",
		Build:       buildTrivialSafety,
	},
	{
		Name:        "trivial-unsafety",
		Description: "a Bool that flips from false to true on the very first step",
		Build:       buildTrivialUnsafety,
	},
	{
		Name:        "counter-bug",
		Description: "a 3-bit counter that increments every step until it hits a forbidden value",
		Build:       buildCounterBug,
	},
	{
		Name:        "two-bit-invariant",
		Description: "two Bools that start and stay true together, requiring no generalization",
		Build:       buildTwoBitInvariant,
	},
	{
		Name:        "shifter-parity",
		Description: "a 4-bit register rotated left every step, always holding exactly one set bit",
		Build:       buildShifterParity,
	},
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, error) {
	for _, s := range All {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, errors.Errorf("unknown scenario %q", name)
}

func buildTrivialSafety() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error) {
	solver := refsolver.New(0)
	env := mbic3.NewTermEnv(solver)
	ts, err := mbic3.NewTransitionSystem(env)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	x, err := ts.MakeState("x", mbic3.BoolSort)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetInit(x); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	nx, err := ts.Next(x)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	trans, err := env.MakeTerm(mbic3.OpEqual, nx, x)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetTrans(trans); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	return ts, mbic3.Property{Name: "x-always-holds", Prop: x}, solver, nil
}

func buildTrivialUnsafety() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error) {
	solver := refsolver.New(0)
	env := mbic3.NewTermEnv(solver)
	ts, err := mbic3.NewTransitionSystem(env)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	x, err := ts.MakeState("x", mbic3.BoolSort)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	notX, err := env.MakeTerm(mbic3.OpNot, x)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetInit(notX); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	tru, err := env.MakeValue(mbic3.BoolSort, true)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	nx, err := ts.Next(x)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	trans, err := env.MakeTerm(mbic3.OpEqual, nx, tru)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetTrans(trans); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	prop, err := env.MakeTerm(mbic3.OpNot, x)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	return ts, mbic3.Property{Name: "x-never-holds", Prop: prop}, solver, nil
}

func buildCounterBug() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error) {
	solver := refsolver.New(0)
	env := mbic3.NewTermEnv(solver)
	ts, err := mbic3.NewTransitionSystem(env)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	bv3 := mbic3.BitVecSort(3)
	c, err := ts.MakeState("c", bv3)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	zero, err := env.MakeValue(bv3, uint64(0))
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	init, err := env.MakeTerm(mbic3.OpEqual, c, zero)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetInit(init); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	one, err := env.MakeValue(bv3, uint64(1))
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	cPlusOne, err := env.MakeTerm(mbic3.OpBVAdd, c, one)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	nc, err := ts.Next(c)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	trans, err := env.MakeTerm(mbic3.OpEqual, nc, cPlusOne)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetTrans(trans); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	five, err := env.MakeValue(bv3, uint64(5))
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	cIsFive, err := env.MakeTerm(mbic3.OpEqual, c, five)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	prop, err := env.MakeTerm(mbic3.OpNot, cIsFive)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	return ts, mbic3.Property{Name: "counter-never-reaches-five", Prop: prop}, solver, nil
}

func buildTwoBitInvariant() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error) {
	solver := refsolver.New(0)
	env := mbic3.NewTermEnv(solver)
	ts, err := mbic3.NewTransitionSystem(env)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	a, err := ts.MakeState("a", mbic3.BoolSort)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	b, err := ts.MakeState("b", mbic3.BoolSort)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	init, err := env.MakeTerm(mbic3.OpAnd, a, b)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetInit(init); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	na, err := ts.Next(a)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	nb, err := ts.Next(b)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	aHolds, err := env.MakeTerm(mbic3.OpEqual, na, a)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	bHolds, err := env.MakeTerm(mbic3.OpEqual, nb, b)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	trans, err := env.MakeTerm(mbic3.OpAnd, aHolds, bHolds)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetTrans(trans); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	prop, err := env.MakeTerm(mbic3.OpAnd, a, b)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	return ts, mbic3.Property{Name: "a-and-b-always-hold", Prop: prop}, solver, nil
}

func buildShifterParity() (*mbic3.TransitionSystem, mbic3.Property, *refsolver.Solver, error) {
	solver := refsolver.New(0)
	env := mbic3.NewTermEnv(solver)
	ts, err := mbic3.NewTransitionSystem(env)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	bv4 := mbic3.BitVecSort(4)
	r, err := ts.MakeState("r", bv4)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	one, err := env.MakeValue(bv4, uint64(1))
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	init, err := env.MakeTerm(mbic3.OpEqual, r, one)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetInit(init); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	rotated, err := env.MakeTerm(mbic3.OpBVRotateLeft1, r)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	nr, err := ts.Next(r)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	trans, err := env.MakeTerm(mbic3.OpEqual, nr, rotated)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	if err := ts.SetTrans(trans); err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	wantOne, err := env.MakeValue(mbic3.IntSort, int64(1))
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	prop, err := env.MakeTerm(mbic3.OpBVPopcountEq, r, wantOne)
	if err != nil {
		return nil, mbic3.Property{}, nil, err
	}
	return ts, mbic3.Property{Name: "exactly-one-bit-set", Prop: prop}, solver, nil
}

// Names lists every registered scenario name, for CLI usage text.
func Names() []string {
	names := make([]string, len(All))
	for i, s := range All {
		names[i] = s.Name
	}
	return names
}

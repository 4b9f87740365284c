package mbic3

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Named is implemented by symbol terms that can report the name they were
// created with. It is consulted, best-effort, when pre-populating the
// interpolating-solver term cache (spec §4.6.2); a Solver whose symbols
// don't implement it simply gets no pre-caching and pays for a slower but
// still correct on-demand translation.
type Named interface {
	Name() string
}

// Options configures an Engine. Use the With* functions with NewEngine,
// which start from defaultOptions: mode-0 (unsat-core dropping) inductive
// generalization and predecessor generalization enabled, no iteration cap
// and no RNG seed. The zero value of Options has both generalizations off.
type Options struct {
	// IndGenMode selects the inductive-generalization strategy: 0
	// (unsat-core dropping), 1 (external reducer), or 2 (interpolation).
	IndGenMode int

	// InductiveGeneralization enables generalization at all; when false,
	// block() stores the raw blocked cube's negation as the learned
	// clause, unshrunk.
	InductiveGeneralization bool

	// PredecessorGeneralization enables preimage generalization (spec
	// §4.6.8); when false, block()'s SAT branch returns the raw predecessor
	// cube unshrunk.
	PredecessorGeneralization bool

	// FunctionalPreimage selects the functional (substitution-based)
	// preimage instead of the relational (reducer-based) one. Only valid
	// when the TransitionSystem is deterministic (no input variables).
	FunctionalPreimage bool

	// MaxGenIter caps generalization iterations; 0 means unlimited.
	MaxGenIter int

	// RandomSeed, when > 0, seeds a deterministic RNG used to shuffle
	// candidate literals before generalization so runs are reproducible
	// (spec §5, testable property 9).
	RandomSeed int64

	// InterpolatingSolver must be set when IndGenMode == 2.
	InterpolatingSolver InterpolatingSolver

	// Logger receives structured diagnostics for frame pushes, blocked
	// goals, and propagation rounds. A nil Logger is replaced with a
	// discarding one.
	Logger *logrus.Entry
}

// Option mutates an Options value, following the functional-options
// convention used throughout the retrieved pack (e.g.
// prim_kruskal.Option in _examples/katalvlaran-lvlath/prim_kruskal/types.go).
type Option func(*Options)

// WithIndGenMode selects the generalization mode (0, 1, or 2).
func WithIndGenMode(mode int) Option { return func(o *Options) { o.IndGenMode = mode } }

// WithInductiveGeneralization toggles §4.6.7 generalization.
func WithInductiveGeneralization(on bool) Option {
	return func(o *Options) { o.InductiveGeneralization = on }
}

// WithPredecessorGeneralization toggles §4.6.8 generalization.
func WithPredecessorGeneralization(on bool) Option {
	return func(o *Options) { o.PredecessorGeneralization = on }
}

// WithFunctionalPreimage selects the functional preimage variant.
func WithFunctionalPreimage(on bool) Option {
	return func(o *Options) { o.FunctionalPreimage = on }
}

// WithMaxGenIter caps generalization iterations.
func WithMaxGenIter(n int) Option { return func(o *Options) { o.MaxGenIter = n } }

// WithRandomSeed seeds the generalization RNG.
func WithRandomSeed(seed int64) Option { return func(o *Options) { o.RandomSeed = seed } }

// WithInterpolatingSolver supplies the second solver required by mode 2.
func WithInterpolatingSolver(s InterpolatingSolver) Option {
	return func(o *Options) { o.InterpolatingSolver = s }
}

// WithLogger injects a structured logger.
func WithLogger(l *logrus.Entry) Option { return func(o *Options) { o.Logger = l } }

func defaultOptions() Options {
	return Options{
		IndGenMode:                0,
		InductiveGeneralization:   true,
		PredecessorGeneralization: true,
	}
}

// Engine is the IC3/PDR core: proof-goal queue, frame structure, relative
// induction queries, generalization, and invariant extraction (spec §4.6).
// An Engine is single-threaded and owns exclusive use of its Solver (and
// optional interpolating Solver) for its entire lifetime (spec §5).
type Engine struct {
	ts   *TransitionSystem
	prop Property
	env  *TermEnv

	solver Solver
	opts   Options
	log    *logrus.Entry

	bad Term

	frames *Frames
	goals  *ProofGoalQueue

	solverContext int

	reducer *UnsatCoreReducer

	// rng, when non-nil, deterministically shuffles generalization
	// candidates (spec §5, testable property 9).
	rng *randSource

	// Interpolation-mode plumbing (spec §4.6.2, §4.8); nil unless
	// opts.IndGenMode == 2.
	interpSolver InterpolatingSolver
	toInterp     *TermTranslator
	toSolver     *TermTranslator

	invariant Term

	// cexTail is the idx==0 goal that ended a failed CheckUntil run;
	// Witness walks its Parent chain to build the trace.
	cexTail *ProofGoal
}

// NewEngine constructs an Engine over ts and prop, driving solver. It
// performs the pre-check described in spec §4.6.2: rejecting Array or
// Uninterpreted sorted state/input variables, creating the initial
// activation label, and (in interpolation mode) setting up the second
// solver and term translators.
func NewEngine(ts *TransitionSystem, prop Property, solver Solver, options ...Option) (*Engine, error) {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(silentLogger())
	}

	e := &Engine{
		ts:     ts,
		prop:   prop,
		env:    ts.Env(),
		solver: solver,
		opts:   opts,
		log:    log,
		frames: NewFrames(),
		goals:  NewProofGoalQueue(),
	}
	e.reducer = NewUnsatCoreReducer(solver)
	if opts.RandomSeed > 0 {
		e.rng = newRandSource(opts.RandomSeed)
	}

	if err := e.checkTS(); err != nil {
		return nil, err
	}

	bad, err := e.env.MakeTerm(OpNot, prop.Prop)
	if err != nil {
		return nil, err
	}
	e.bad = bad

	if err := e.initialize(); err != nil {
		return nil, err
	}

	return e, nil
}

// checkTS rejects transition systems with Array or Uninterpreted sort
// state/input variables (spec §4.6.2, §7 ErrUnsupportedSort).
func (e *Engine) checkTS() error {
	check := func(vars map[Term]struct{}) error {
		for v := range vars {
			k := v.Sort().Kind
			if k == SortArray || k == SortUninterpreted {
				return fmt.Errorf("%w: %s has sort %s", ErrUnsupportedSort, v, k)
			}
		}
		return nil
	}
	if err := check(e.ts.StateVars()); err != nil {
		return err
	}
	return check(e.ts.InputVars())
}

// initialize creates the L0 (init) and L1 activation labels and, in
// interpolation mode, the translator plumbing (spec §4.6.2).
func (e *Engine) initialize() error {
	l0, err := e.solver.MakeSymbol(e.freshLabelName(), BoolSort)
	if err != nil {
		return wrapSolverErr("make_symbol(L0)", err)
	}
	implInit, err := e.env.MakeTerm(OpImplies, l0, e.ts.Init())
	if err != nil {
		return err
	}
	if err := e.solver.AssertFormula(implInit); err != nil {
		return wrapSolverErr("assert(L0 -> init)", err)
	}
	e.frames.SetLabel0(l0)

	l1, err := e.solver.MakeSymbol(e.freshLabelName(), BoolSort)
	if err != nil {
		return wrapSolverErr("make_symbol(L1)", err)
	}
	e.frames.PushFrame(l1)

	if e.opts.IndGenMode == 2 {
		if err := e.initializeInterpolation(); err != nil {
			return err
		}
	}

	return nil
}

var labelCounter int

func (e *Engine) freshLabelName() string {
	labelCounter++
	return fmt.Sprintf("__mbic3_L%d", labelCounter)
}

// Prove runs the engine to completion (spec §4.6.1).
func (e *Engine) Prove(ctx context.Context) (Result, error) {
	return e.CheckUntil(ctx, -1)
}

// CheckUntil runs the engine until it decides the property or frames.Top()
// reaches bound, whichever comes first. bound < 0 means unbounded (spec
// §4.6.1, §5 cancellation).
func (e *Engine) CheckUntil(ctx context.Context, bound int) (Result, error) {
	defer e.assertContextZero()

	for {
		if err := ctx.Err(); err != nil {
			return ResultUnknown, nil
		}

		intersects, err := e.intersectsBad()
		if err != nil {
			return ResultUnknown, err
		}

		if intersects {
			for !e.goals.Empty() {
				if err := ctx.Err(); err != nil {
					return ResultUnknown, nil
				}

				g := e.goals.Pop()
				if g.Idx == 0 {
					e.cexTail = g
					return ResultFalse, nil
				}

				blocked, lemmas, pred, err := e.block(g)
				if err != nil {
					return ResultUnknown, err
				}

				if blocked {
					if err := e.pushForward(g, lemmas...); err != nil {
						return ResultUnknown, err
					}
				} else {
					predGoal := e.goals.AddProofGoal(pred.cube, g.Idx-1, g)
					predGoal.FullState = pred.fullState
					predGoal.Inputs = pred.inputs

					retryGoal := e.goals.AddProofGoal(g.Cube, g.Idx, g.Parent)
					retryGoal.FullState = g.FullState
					retryGoal.Inputs = g.Inputs
				}
			}
			e.log.WithField("top", e.frames.Top()).Debug("all bad goals blocked at current frame")
			continue
		}

		if bound >= 0 && e.frames.Top() >= bound {
			return ResultUnknown, nil
		}

		label, err := e.solver.MakeSymbol(e.freshLabelName(), BoolSort)
		if err != nil {
			return ResultUnknown, wrapSolverErr("make_symbol(frame label)", err)
		}
		e.frames.PushFrame(label)
		e.log.WithField("top", e.frames.Top()).Debug("pushed frame")

		invariant, proved, err := e.propagate()
		if err != nil {
			return ResultUnknown, err
		}
		if proved {
			e.invariant = invariant
			return ResultTrue, nil
		}
	}
}

// predecessorResult bundles a generalized predecessor cube with the raw
// concrete model it was generalized from, so Witness can reconstruct a
// genuine counterexample trace even though the cube used for blocking may
// have been shrunk by generalization (spec §6.3, §4.6.8).
type predecessorResult struct {
	cube      IC3Formula
	fullState map[Term]Term
	inputs    map[Term]Term
}

// assertContextZero is called via defer from every public entry point to
// guarantee the solver push depth is zero afterwards (spec §5, §7,
// testable property 11), regardless of which path returned.
func (e *Engine) assertContextZero() {
	if e.solverContext != 0 {
		panicInvariant("solver_context == %d at exit, expected 0", e.solverContext)
	}
}

func (e *Engine) pushCtx() error {
	if err := e.solver.Push(); err != nil {
		return wrapSolverErr("push", err)
	}
	e.solverContext++
	return nil
}

func (e *Engine) popCtx() error {
	if err := e.solver.Pop(); err != nil {
		return wrapSolverErr("pop", err)
	}
	e.solverContext--
	return nil
}

// frameAssumptions returns the activation labels that, assumed together,
// make true exactly the frame term at index i (spec §4.5). Index 0 is
// special-cased to the init label alone, since frames[0] stores no clauses
// of its own — F_0 is init exactly, not init conjoined with whatever has
// been learned at higher levels.
func (e *Engine) frameAssumptions(i int) []Term {
	if i <= 0 {
		return []Term{e.frames.Label(0)}
	}
	labels := make([]Term, 0, e.frames.Top()-i+1)
	for j := i; j <= e.frames.Top(); j++ {
		labels = append(labels, e.frames.Label(j))
	}
	return labels
}

func (e *Engine) assertFrame(i int) error {
	for _, lab := range e.frameAssumptions(i) {
		if err := e.solver.AssertFormula(lab); err != nil {
			return wrapSolverErr("assert_frame_label", err)
		}
	}
	return nil
}

func (e *Engine) checkSat() (CheckSatResult, error) {
	r, err := e.solver.CheckSat()
	if err != nil {
		return Unknown, wrapSolverErr("check_sat", err)
	}
	if r == Unknown {
		return Unknown, &SolverError{Op: "check_sat", Cause: errors.New("solver returned unknown")}
	}
	return r, nil
}

func (e *Engine) checkSatAssuming(assumps []Term) (CheckSatResult, error) {
	r, err := e.solver.CheckSatAssuming(assumps)
	if err != nil {
		return Unknown, wrapSolverErr("check_sat_assuming", err)
	}
	if r == Unknown {
		return Unknown, &SolverError{Op: "check_sat_assuming", Cause: errors.New("solver returned unknown")}
	}
	return r, nil
}

// intersectsBad checks whether F_top ∧ bad is satisfiable (spec §4.6.4). On
// SAT it enqueues a new proof goal built from bad's conjunctive partition.
func (e *Engine) intersectsBad() (bool, error) {
	if err := e.pushCtx(); err != nil {
		return false, err
	}

	if err := e.assertFrame(e.frames.Top()); err != nil {
		e.popCtx()
		return false, err
	}
	if err := e.solver.AssertFormula(e.bad); err != nil {
		e.popCtx()
		return false, wrapSolverErr("assert_bad", err)
	}

	res, err := e.checkSat()
	if err != nil {
		e.popCtx()
		return false, err
	}

	intersects := res == Sat
	if intersects {
		var conjuncts []Term
		e.env.ConjunctivePartition(e.bad, &conjuncts, true)
		cube, err := Conjunction(e.env, conjuncts)
		if err != nil {
			e.popCtx()
			return false, err
		}
		// FullState/Inputs are left nil: this goal isn't grounded in a
		// concrete model yet. block() grounds it the first time it is
		// checked, from the next-state copy of that query's SAT model.
		g := e.goals.AddProofGoal(cube, e.frames.Top(), nil)
		e.log.WithField("idx", g.Idx).Debug("bad intersects top frame, seeded proof goal")
	}

	if err := e.popCtx(); err != nil {
		return false, err
	}
	return intersects, nil
}

// block answers "is g.Cube reachable from F_{g.Idx-1}?" (spec §4.6.5). On
// UNSAT it generalizes and returns the blocking clause(s) just stored at
// frames[g.Idx]. On SAT it generalizes a predecessor cube for the caller to
// enqueue one level down.
func (e *Engine) block(g *ProofGoal) (blocked bool, lemmas []IC3Formula, pred predecessorResult, err error) {
	i := g.Idx

	if err = e.pushCtx(); err != nil {
		return false, nil, pred, err
	}

	if err = e.assertFrame(i - 1); err != nil {
		e.popCtx()
		return false, nil, pred, err
	}
	if err = e.solver.AssertFormula(e.ts.Trans()); err != nil {
		e.popCtx()
		return false, nil, pred, wrapSolverErr("assert_trans", err)
	}
	nextCube, nerr := e.ts.Next(g.Cube.Term)
	if nerr != nil {
		e.popCtx()
		return false, nil, pred, nerr
	}
	if err = e.solver.AssertFormula(nextCube); err != nil {
		e.popCtx()
		return false, nil, pred, wrapSolverErr("assert_next_cube", err)
	}
	notCube, nerr := e.env.MakeTerm(OpNot, g.Cube.Term)
	if nerr != nil {
		e.popCtx()
		return false, nil, pred, nerr
	}
	if err = e.solver.AssertFormula(notCube); err != nil {
		e.popCtx()
		return false, nil, pred, wrapSolverErr("assert_not_cube", err)
	}

	res, cerr := e.checkSat()
	if cerr != nil {
		e.popCtx()
		return false, nil, pred, cerr
	}

	if res == Unsat {
		if err = e.popCtx(); err != nil {
			return false, nil, pred, err
		}

		lemmas, gerr := e.inductiveGeneralization(i, g.Cube)
		if gerr != nil {
			return false, nil, pred, gerr
		}
		for _, lemma := range lemmas {
			e.frames.AddClause(i, lemma)
			impl, ierr := e.env.MakeTerm(OpImplies, e.frames.Label(i), lemma.Term)
			if ierr != nil {
				return false, nil, pred, ierr
			}
			if aerr := e.solver.AssertFormula(impl); aerr != nil {
				return false, nil, pred, wrapSolverErr("assert(L_i -> clause)", aerr)
			}
		}
		e.log.WithFields(logrus.Fields{"idx": i, "lemmas": len(lemmas)}).Debug("blocked goal, learned clause(s)")
		return true, lemmas, pred, nil
	}

	// SAT: extract g's own full valuation (from the next-state copy of the
	// model) if this is the first time g has been grounded in a concrete
	// model — true exactly when g came from intersects_bad's bad partition
	// rather than from an earlier generalizePredecessor call.
	if g.FullState == nil {
		fs, ferr := e.fullStateFromNext()
		if ferr != nil {
			e.popCtx()
			return false, nil, pred, ferr
		}
		g.FullState = fs
	}

	predCube, predFullState, predInputs, gerr := e.generalizePredecessor(i, g.Cube)
	if perr := e.popCtx(); perr != nil {
		return false, nil, pred, perr
	}
	if gerr != nil {
		return false, nil, pred, gerr
	}

	pred = predecessorResult{cube: predCube, fullState: predFullState, inputs: predInputs}
	return false, nil, pred, nil
}

// fullStateFromNext reads, from the currently-satisfiable solver context,
// the concrete value of every state variable's next-state copy. Used to
// ground the top-level bad goal in a concrete model the first time it is
// blocked against (spec §6.3 witness construction).
func (e *Engine) fullStateFromNext() (map[Term]Term, error) {
	out := make(map[Term]Term)
	for v := range e.ts.StateVars() {
		nv, err := e.ts.Next(v)
		if err != nil {
			return nil, err
		}
		val, err := e.solver.GetValue(nv)
		if err != nil {
			return nil, wrapSolverErr("get_value(next)", err)
		}
		out[v] = val
	}
	return out, nil
}

// isInductiveRelative reports whether clause is inductive relative to F_i,
// i.e. F_i ∧ trans ∧ ¬clause' is UNSAT (spec glossary "relative
// induction"; used by both propagate and pushForward).
func (e *Engine) isInductiveRelative(i int, clause IC3Formula) (bool, error) {
	if err := e.pushCtx(); err != nil {
		return false, err
	}
	defer e.popCtx()

	if err := e.assertFrame(i); err != nil {
		return false, err
	}
	if err := e.solver.AssertFormula(e.ts.Trans()); err != nil {
		return false, wrapSolverErr("assert_trans", err)
	}

	notClause, err := e.env.MakeTerm(OpNot, clause.Term)
	if err != nil {
		return false, err
	}
	nextNotClause, err := e.ts.Next(notClause)
	if err != nil {
		return false, err
	}
	if err := e.solver.AssertFormula(nextNotClause); err != nil {
		return false, wrapSolverErr("assert_next_not_clause", err)
	}

	res, err := e.checkSat()
	if err != nil {
		return false, err
	}
	return res == Unsat, nil
}

// pushForward attempts to extend the protection of a just-blocked goal one
// level higher (spec §4.6.6). lemmas are the clause(s) just learned at
// g.Idx.
func (e *Engine) pushForward(g *ProofGoal, lemmas ...IC3Formula) error {
	i := g.Idx
	if i >= e.frames.Top() {
		return nil
	}

	for _, lemma := range lemmas {
		ok, err := e.isInductiveRelative(i, lemma)
		if err != nil {
			return err
		}
		if ok {
			e.moveClauseForward(i, lemma)
			return nil
		}
	}

	if g.Idx < e.frames.Top() {
		ng := e.goals.AddProofGoal(g.Cube, g.Idx+1, g.Parent)
		ng.FullState = g.FullState
		ng.Inputs = g.Inputs
	}
	return nil
}

// moveClauseForward relocates a clause from frames[i] to frames[i+1] by
// Term identity.
func (e *Engine) moveClauseForward(i int, clause IC3Formula) {
	clauses := e.frames.Clauses(i)
	for j, c := range clauses {
		if c.Term.Equal(clause.Term) {
			e.frames.RemoveClauseAt(i, j)
			break
		}
	}
	e.frames.AddClause(i+1, clause)
}

// propagate pushes inductive clauses forward across every frame
// (spec §4.6.3) after a new top frame has been created. It returns the
// inductive invariant and true if two consecutive frames became equal.
func (e *Engine) propagate() (Term, bool, error) {
	for i := 1; i < e.frames.Top(); i++ {
		clauses := append([]IC3Formula(nil), e.frames.Clauses(i)...)
		for _, c := range clauses {
			ok, err := e.isInductiveRelative(i, c)
			if err != nil {
				return nil, false, err
			}
			if ok {
				e.moveClauseForward(i, c)
				impl, ierr := e.env.MakeTerm(OpImplies, e.frames.Label(i+1), c.Term)
				if ierr != nil {
					return nil, false, ierr
				}
				if aerr := e.solver.AssertFormula(impl); aerr != nil {
					return nil, false, wrapSolverErr("assert(L_{i+1} -> clause)", aerr)
				}
			}
		}
	}

	for i := 1; i < e.frames.Top(); i++ {
		if e.frames.EqualFrames(i) {
			invariant, err := e.frames.FrameTerm(e.env, i)
			if err != nil {
				return nil, false, err
			}
			e.log.WithField("idx", i).Info("found fixed point, proved property")
			return invariant, true, nil
		}
	}

	return nil, false, nil
}

// Witness populates trace with the counterexample found by Prove/CheckUntil
// after a ResultFalse. It is undefined after ResultTrue (spec §4.6.1,
// §6.3).
func (e *Engine) Witness() ([]map[Term]Term, bool) {
	if e.cexTail == nil {
		return nil, false
	}

	// e.cexTail is the Idx==0 goal that ended the proof: each predecessor
	// cube's Parent points at the (higher-Idx) goal it was derived from, so
	// walking Parent from cexTail visits Idx 0, 1, 2, ... up to the
	// original bad goal at Idx==top — already in forward time order.
	var chain []*ProofGoal
	for g := e.cexTail; g != nil; g = g.Parent {
		chain = append(chain, g)
	}

	trace := make([]map[Term]Term, len(chain))
	for t, g := range chain {
		step := make(map[Term]Term)
		for v, val := range g.FullState {
			step[v] = val
		}
		for v, val := range g.Inputs {
			step[v] = val
		}
		// Inputs absent at this step (notably the final state, which has
		// no outgoing transition) default to the sort's zero value so
		// every input variable is always present in the map, per spec
		// §6.3.
		for v := range e.ts.InputVars() {
			if _, ok := step[v]; !ok {
				if zero, err := e.zeroValue(v.Sort()); err == nil {
					step[v] = zero
				}
			}
		}
		trace[t] = step
	}

	return trace, true
}

func (e *Engine) zeroValue(sort Sort) (Term, error) {
	switch sort.Kind {
	case SortBool:
		return e.env.MakeValue(sort, false)
	case SortBitVec, SortInt:
		return e.env.MakeValue(sort, 0)
	default:
		return nil, fmt.Errorf("mbic3: no zero value for sort %s", sort)
	}
}

// Invar returns the inductive invariant found by a successful Prove/
// CheckUntil (ResultTrue). It fails if no run of this engine has yet
// returned ResultTrue.
func (e *Engine) Invar() (Term, error) {
	if e.invariant == nil {
		return nil, errors.New("mbic3: no invariant available (prove a ResultTrue first)")
	}
	return e.invariant, nil
}

// silentLogger returns a logrus.Logger with output discarded, used when the
// caller supplies no logger (grounded on the teacher's logging setup in
// other_examples/50c8dca7_Consensys-go-corset__pkg-ir-mir-subdivide_vanishing.go.go,
// which configures a package-level logrus logger rather than using the
// standard library's log package).
func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

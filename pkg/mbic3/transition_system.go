package mbic3

import "fmt"

// TransitionSystem holds the symbolic description of a finite-state system:
// state/next/input variable bookkeeping plus the init and trans predicates
// (spec §3, §4.2). This is the relational variant — AddConstraint conjoins
// next(c) onto trans only, never strengthening init directly; a functional
// variant, which would also conjoin c onto init, is not provided.
//
// TransitionSystem is built incrementally by a front-end via MakeState,
// MakeInput, SetInit/SetTrans/ConstrainTrans/AddConstraint, then frozen
// before an Engine reads it; mutating it after Engine construction is
// undefined, matching the spec's stated lifecycle.
type TransitionSystem struct {
	env *TermEnv

	stateVars map[Term]struct{}
	nextVars  map[Term]struct{}
	inputVars map[Term]struct{}

	statesMap     map[Term]Term // current -> next
	nextStatesMap map[Term]Term // next -> current

	byName map[string]Term

	init  Term
	trans Term
}

// NewTransitionSystem creates an empty transition system over env. init and
// trans start as the Bool value true.
func NewTransitionSystem(env *TermEnv) (*TransitionSystem, error) {
	trueTerm, err := env.MakeValue(BoolSort, true)
	if err != nil {
		return nil, err
	}
	return &TransitionSystem{
		env:           env,
		stateVars:     make(map[Term]struct{}),
		nextVars:      make(map[Term]struct{}),
		inputVars:     make(map[Term]struct{}),
		statesMap:     make(map[Term]Term),
		nextStatesMap: make(map[Term]Term),
		byName:        make(map[string]Term),
		init:          trueTerm,
		trans:         trueTerm,
	}, nil
}

// Env returns the TermEnv backing this transition system.
func (ts *TransitionSystem) Env() *TermEnv { return ts.env }

// StateVars returns the set of current-state variables.
func (ts *TransitionSystem) StateVars() map[Term]struct{} { return ts.stateVars }

// NextVars returns the set of next-state variables.
func (ts *TransitionSystem) NextVars() map[Term]struct{} { return ts.nextVars }

// InputVars returns the set of input variables.
func (ts *TransitionSystem) InputVars() map[Term]struct{} { return ts.inputVars }

// Init returns the current init predicate.
func (ts *TransitionSystem) Init() Term { return ts.init }

// Trans returns the current trans predicate.
func (ts *TransitionSystem) Trans() Term { return ts.trans }

// MakeState creates a paired current/next symbol "name" and "name.next" of
// the given sort, registers both, and records the current->next and
// next->current mappings. It returns the current-state term.
func (ts *TransitionSystem) MakeState(name string, sort Sort) (Term, error) {
	cur, err := ts.env.MakeSymbol(name, sort)
	if err != nil {
		return nil, err
	}
	next, err := ts.env.MakeSymbol(name+".next", sort)
	if err != nil {
		return nil, err
	}

	ts.stateVars[cur] = struct{}{}
	ts.nextVars[next] = struct{}{}
	ts.statesMap[cur] = next
	ts.nextStatesMap[next] = cur
	ts.byName[name] = cur

	return cur, nil
}

// MakeInput creates an input symbol "name" of the given sort and registers
// it.
func (ts *TransitionSystem) MakeInput(name string, sort Sort) (Term, error) {
	in, err := ts.env.MakeSymbol(name, sort)
	if err != nil {
		return nil, err
	}
	ts.inputVars[in] = struct{}{}
	ts.byName[name] = in
	return in, nil
}

// Lookup returns the registered term with the given name, if any.
func (ts *TransitionSystem) Lookup(name string) (Term, bool) {
	t, ok := ts.byName[name]
	return t, ok
}

// SetInit requires that t mentions only state variables and assigns it as
// the init predicate.
func (ts *TransitionSystem) SetInit(t Term) error {
	if !ts.OnlyCurr(t) {
		return fmt.Errorf("mbic3: set_init: %w: %s", ErrUnknownSymbol, t)
	}
	ts.init = t
	return nil
}

// SetTrans requires that t mentions only known symbols and assigns it as
// the trans predicate.
func (ts *TransitionSystem) SetTrans(t Term) error {
	if !ts.KnownSymbols(t) {
		return fmt.Errorf("mbic3: set_trans: %w: %s", ErrUnknownSymbol, t)
	}
	ts.trans = t
	return nil
}

// ConstrainTrans conjoins c onto trans, requiring c mentions only known
// symbols.
func (ts *TransitionSystem) ConstrainTrans(c Term) error {
	if !ts.KnownSymbols(c) {
		return fmt.Errorf("mbic3: constrain_trans: %w: %s", ErrUnknownSymbol, c)
	}
	conj, err := ts.env.MakeTerm(OpAnd, ts.trans, c)
	if err != nil {
		return err
	}
	ts.trans = conj
	return nil
}

// AddConstraint conjoins c onto trans. When c mentions only state
// variables, next(c) is additionally conjoined onto trans so the
// constraint is preserved across every step (spec §4.2): without this, a
// state-only invariant asserted once would only bind the first copy of the
// variables trans sees and could be violated by the successor state.
func (ts *TransitionSystem) AddConstraint(c Term) error {
	if !ts.KnownSymbols(c) {
		return fmt.Errorf("mbic3: add_constraint: %w: %s", ErrUnknownSymbol, c)
	}

	conj, err := ts.env.MakeTerm(OpAnd, ts.trans, c)
	if err != nil {
		return err
	}
	ts.trans = conj

	if ts.OnlyCurr(c) {
		nc, err := ts.Next(c)
		if err != nil {
			return err
		}
		conj, err := ts.env.MakeTerm(OpAnd, ts.trans, nc)
		if err != nil {
			return err
		}
		ts.trans = conj
	}

	return nil
}

// Next substitutes every current-state variable in t with its next-state
// counterpart.
func (ts *TransitionSystem) Next(t Term) (Term, error) {
	return ts.env.Substitute(t, ts.statesMap)
}

// Curr substitutes every next-state variable in t with its current-state
// counterpart.
func (ts *TransitionSystem) Curr(t Term) (Term, error) {
	return ts.env.Substitute(t, ts.nextStatesMap)
}

// IsCurrVar reports whether sv is a registered current-state variable.
func (ts *TransitionSystem) IsCurrVar(sv Term) bool {
	_, ok := ts.stateVars[sv]
	return ok
}

// IsNextVar reports whether sv is a registered next-state variable.
func (ts *TransitionSystem) IsNextVar(sv Term) bool {
	_, ok := ts.nextVars[sv]
	return ok
}

// OnlyCurr reports whether every symbolic constant appearing in t is a
// registered state variable. It walks the term DAG with a visited set,
// checking the popped node on each iteration rather than the original input
// term — the corrected traversal the spec mandates (see DESIGN.md for the
// bug this fixes relative to the original C++ rts.cpp, where the cache-hit
// check tests the outer parameter and so never actually hits for anything
// but the root).
func (ts *TransitionSystem) OnlyCurr(t Term) bool {
	visited := make(map[Term]struct{})
	stack := []Term{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[cur]; ok {
			continue
		}

		if cur.IsSymbolicConst() {
			if _, ok := ts.stateVars[cur]; !ok {
				return false
			}
		}

		visited[cur] = struct{}{}
		stack = append(stack, cur.Children()...)
	}
	return true
}

// KnownSymbols reports whether every symbolic constant appearing in t is a
// registered state, next-state, or input variable. See OnlyCurr for the
// traversal discipline.
func (ts *TransitionSystem) KnownSymbols(t Term) bool {
	visited := make(map[Term]struct{})
	stack := []Term{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[cur]; ok {
			continue
		}

		if cur.IsSymbolicConst() {
			_, isState := ts.stateVars[cur]
			_, isNext := ts.nextVars[cur]
			_, isInput := ts.inputVars[cur]
			if !isState && !isNext && !isInput {
				return false
			}
		}

		visited[cur] = struct{}{}
		stack = append(stack, cur.Children()...)
	}
	return true
}

// IsDeterministic reports whether this transition system has no input
// variables, in which case trans is a functional update of state and the
// engine's functional-preimage generalization mode (spec §4.6.8) applies.
func (ts *TransitionSystem) IsDeterministic() bool {
	return len(ts.inputVars) == 0
}

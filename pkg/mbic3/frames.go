package mbic3

// Frames holds the sequence of over-approximating frames plus one
// activation label per frame (spec §3, §4.5). frames[0] stores no clauses:
// init is encoded purely through the activation label labels[0], asserted
// once at engine initialization as L0 → init. For i>0, frames[i] stores the
// clauses learned specifically at level i; "the frame term at i" is the
// conjunction of every clause at levels ≥ i.
type Frames struct {
	clauses [][]IC3Formula
	labels  []Term
}

// NewFrames creates a Frames with a single frame-0 slot (no clauses) and no
// labels yet; the engine assigns labels during initialize.
func NewFrames() *Frames {
	return &Frames{
		clauses: [][]IC3Formula{nil},
	}
}

// Depth returns the number of frames, i.e. one more than the highest
// populated frame index.
func (f *Frames) Depth() int { return len(f.clauses) }

// PushFrame appends a new, empty frame with the given activation label.
func (f *Frames) PushFrame(label Term) {
	f.clauses = append(f.clauses, nil)
	f.labels = append(f.labels, label)
}

// SetLabel0 records the activation label for frame 0 (init).
func (f *Frames) SetLabel0(label Term) {
	if len(f.labels) == 0 {
		f.labels = []Term{label}
		return
	}
	f.labels[0] = label
}

// Label returns the activation label for frame i.
func (f *Frames) Label(i int) Term { return f.labels[i] }

// Clauses returns the clauses stored specifically at frame i (not the
// clauses inherited from higher frames).
func (f *Frames) Clauses(i int) []IC3Formula { return f.clauses[i] }

// AddClause stores clause at frame i.
func (f *Frames) AddClause(i int, clause IC3Formula) {
	f.clauses[i] = append(f.clauses[i], clause)
}

// RemoveClauseAt removes the clause at index j within frame i's slice,
// preserving the remaining order.
func (f *Frames) RemoveClauseAt(i, j int) {
	f.clauses[i] = append(f.clauses[i][:j], f.clauses[i][j+1:]...)
}

// FrameTerm returns the conjunction of every clause stored at frame index j
// for j ≥ i — the effective over-approximation used at level i (spec
// §4.5). Frame 0's implicit init content is not included here; callers that
// need F_0 ∧ … also assert the init label separately, matching the
// reference engine's convention of never materializing init as a stored
// clause.
func (f *Frames) FrameTerm(env *TermEnv, i int) (Term, error) {
	var lits []Term
	for j := i; j < len(f.clauses); j++ {
		for _, c := range f.clauses[j] {
			lits = append(lits, c.Term)
		}
	}
	return conjunction(env, lits)
}

// Top returns the index of the highest frame.
func (f *Frames) Top() int { return len(f.clauses) - 1 }

// EqualFrames reports whether frames i and i+1 contain the same set of
// clauses (by Term identity), the termination condition for propagation
// (spec §4.6.3): when this holds, frame i's term is an inductive invariant.
func (f *Frames) EqualFrames(i int) bool {
	a, b := f.clauses[i], f.clauses[i+1]
	if len(a) != len(b) {
		return false
	}
	inB := make(map[Term]struct{}, len(b))
	for _, c := range b {
		inB[c.Term] = struct{}{}
	}
	for _, c := range a {
		if _, ok := inB[c.Term]; !ok {
			return false
		}
	}
	return true
}

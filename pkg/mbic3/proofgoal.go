package mbic3

import "container/heap"

// ProofGoal is an obligation: "prove Cube cannot be reached at frame Idx"
// (spec §3). Parent links the chain of predecessor cubes the engine
// reconstructs into a counterexample trace once a goal reaches Idx == 0.
//
// FullState and Inputs are not part of the spec's Idx/Cube/Parent
// vocabulary; they are a side channel the engine uses to ground a
// (possibly generalized, hence partial) Cube in the concrete model it came
// from, so Witness can report a genuine variable assignment at every step
// rather than the shrunk cube used internally for blocking.
type ProofGoal struct {
	Cube   IC3Formula
	Idx    int
	Parent *ProofGoal

	FullState map[Term]Term
	Inputs    map[Term]Term
}

// proofGoalQueue is a container/heap min-priority-queue of *ProofGoal
// ordered by Idx ascending, ties broken by insertion order (spec §4.5,
// §5). It is unexported: callers use ProofGoalQueue, which wraps it with
// the Add/Pop/Empty vocabulary the spec uses.
type proofGoalQueue struct {
	items []*ProofGoal
	seq   []int64 // insertion sequence, parallel to items
	next  int64
}

func (q *proofGoalQueue) Len() int { return len(q.items) }

func (q *proofGoalQueue) Less(i, j int) bool {
	if q.items[i].Idx != q.items[j].Idx {
		return q.items[i].Idx < q.items[j].Idx
	}
	return q.seq[i] < q.seq[j]
}

func (q *proofGoalQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.seq[i], q.seq[j] = q.seq[j], q.seq[i]
}

func (q *proofGoalQueue) Push(x any) {
	q.items = append(q.items, x.(*ProofGoal))
	q.seq = append(q.seq, q.next)
	q.next++
}

func (q *proofGoalQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	q.seq = q.seq[:n-1]
	return item
}

// ProofGoalQueue is a priority queue of proof goals, smallest Idx first
// (spec §4.5).
type ProofGoalQueue struct {
	q *proofGoalQueue
}

// NewProofGoalQueue creates an empty queue.
func NewProofGoalQueue() *ProofGoalQueue {
	q := &proofGoalQueue{}
	heap.Init(q)
	return &ProofGoalQueue{q: q}
}

// AddProofGoal inserts a new goal for cube at the given frame index with
// the given parent (nil for a goal seeded directly from bad).
func (pq *ProofGoalQueue) AddProofGoal(cube IC3Formula, idx int, parent *ProofGoal) *ProofGoal {
	g := &ProofGoal{Cube: cube, Idx: idx, Parent: parent}
	heap.Push(pq.q, g)
	return g
}

// Pop removes and returns the goal with the smallest Idx.
func (pq *ProofGoalQueue) Pop() *ProofGoal {
	return heap.Pop(pq.q).(*ProofGoal)
}

// Empty reports whether the queue has no goals.
func (pq *ProofGoalQueue) Empty() bool {
	return pq.q.Len() == 0
}

// Len returns the number of goals currently queued.
func (pq *ProofGoalQueue) Len() int {
	return pq.q.Len()
}

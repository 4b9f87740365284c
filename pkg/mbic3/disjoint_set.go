package mbic3

// RankFunc decides which of two representatives should win when two
// classes are unioned: RankFunc(a, b) returning true means a should become
// (or remain) the representative over b. DefaultRank implements the IC3
// convention used during model extraction (spec §4.4): a value-term always
// outranks a non-value term, so a class that has a value-term among its
// members is represented by it; among two non-values the one whose String
// form sorts lower wins. Add keeps a key's value as a payload, not as a
// class member, so a class built only through Add is represented by one of
// its keys.
type RankFunc func(a, b Term) bool

// DisjointSet is a union-find keyed by Term, used after a SAT check to
// group state variables that share a model value, yielding congruence
// equalities that strengthen a cube (spec §4.4). Unlike the classic
// union-by-rank structure in prim_kruskal.Kruskal
// (_examples/katalvlaran-lvlath/prim_kruskal/kruskal.go), the "rank" here is
// not tree height — it is the caller-supplied preference for which member
// of a class best represents it.
type DisjointSet struct {
	rank   RankFunc
	parent map[Term]Term
	// valueOf maps a key to the payload it was added with, consulted to
	// decide whether inserting (key, value) should join an existing class
	// (because some other key already mapped to an Equal value) or start a
	// new singleton class.
	valueOf map[Term]Term
}

// NewDisjointSet creates an empty DisjointSet using rank to resolve
// representatives on union.
func NewDisjointSet(rank RankFunc) *DisjointSet {
	return &DisjointSet{
		rank:    rank,
		parent:  make(map[Term]Term),
		valueOf: make(map[Term]Term),
	}
}

// Add inserts key with the given payload value. If no existing class has
// exactly this value, key starts a new singleton class. If one does, key is
// unioned into that class.
func (ds *DisjointSet) Add(key, value Term) {
	if _, ok := ds.parent[key]; !ok {
		ds.parent[key] = key
		ds.valueOf[key] = value
	}

	for existing, existingVal := range ds.valueOf {
		if existing == key {
			continue
		}
		if existingVal.Equal(value) {
			ds.union(key, existing)
			return
		}
	}
}

// Find returns the representative of key's class. If key was never added,
// it is its own representative.
func (ds *DisjointSet) Find(key Term) Term {
	root, ok := ds.parent[key]
	if !ok {
		return key
	}
	for root != ds.parent[root] {
		// Path compression.
		ds.parent[root] = ds.parent[ds.parent[root]]
		root = ds.parent[root]
	}
	ds.parent[key] = root
	return root
}

func (ds *DisjointSet) union(a, b Term) {
	rootA, rootB := ds.Find(a), ds.Find(b)
	if rootA == rootB {
		return
	}
	if ds.rank(rootA, rootB) {
		ds.parent[rootB] = rootA
	} else {
		ds.parent[rootA] = rootB
	}
}

// DefaultRank is the IC3 model-extraction ranking: a value-term always
// outranks a non-value term; between two non-values, the one whose String
// form sorts lower wins. String-order is used instead of a raw pointer
// comparison because Term is an interface and this package has no license
// to assume its dynamic type supports ordering — determinism only requires
// *some* total, stable order, and String output is stable for a given
// hash-consed term.
func DefaultRank(a, b Term) bool {
	if !a.IsValue() && !b.IsValue() {
		return a.String() < b.String()
	}
	return a.IsValue()
}

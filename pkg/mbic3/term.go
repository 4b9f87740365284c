package mbic3

import "fmt"

// SortKind distinguishes the handful of sorts the core understands. Array
// and Uninterpreted exist only so TransitionSystem and Engine can recognize
// and reject them (spec Non-goals); no operation in this package constructs
// terms of those sorts.
type SortKind int

const (
	SortBool SortKind = iota
	SortBitVec
	SortInt
	SortReal
	SortArray
	SortUninterpreted
)

// String renders a SortKind for diagnostics and log lines.
func (k SortKind) String() string {
	switch k {
	case SortBool:
		return "Bool"
	case SortBitVec:
		return "BitVec"
	case SortInt:
		return "Int"
	case SortReal:
		return "Real"
	case SortArray:
		return "Array"
	case SortUninterpreted:
		return "Uninterpreted"
	default:
		return fmt.Sprintf("SortKind(%d)", int(k))
	}
}

// Sort describes the type of a Term. Width is meaningful only for
// SortBitVec. Index/Elem are meaningful only for SortArray, carried so a
// front-end can describe an array sort even though the core rejects it.
type Sort struct {
	Kind  SortKind
	Width int
	Index *Sort
	Elem  *Sort
}

// String renders a Sort the way a solver's pretty-printer would.
func (s Sort) String() string {
	switch s.Kind {
	case SortBitVec:
		return fmt.Sprintf("(_ BitVec %d)", s.Width)
	case SortArray:
		idx, elem := "?", "?"
		if s.Index != nil {
			idx = s.Index.String()
		}
		if s.Elem != nil {
			elem = s.Elem.String()
		}
		return fmt.Sprintf("(Array %s %s)", idx, elem)
	default:
		return s.Kind.String()
	}
}

// BoolSort, IntSort and RealSort are the singleton non-parametric sorts.
var (
	BoolSort = Sort{Kind: SortBool}
	IntSort  = Sort{Kind: SortInt}
	RealSort = Sort{Kind: SortReal}
)

// BitVecSort returns the BitVec sort of the given width.
func BitVecSort(width int) Sort {
	return Sort{Kind: SortBitVec, Width: width}
}

// Op enumerates the operators a conforming Solver must support (spec §6.1)
// plus the handful of bit-vector convenience operators the reference backend
// and the bundled example transition systems use to avoid needing a full
// bit-blasting arithmetic layer.
type Op int

const (
	// Core first-order signature.
	OpAnd Op = iota
	OpOr
	OpNot
	OpImplies
	OpEqual
	OpIte

	// Bit-vector comparisons (unsigned; spec names these explicitly).
	OpBVUle
	OpBVUlt
	OpBVUge
	OpBVUgt

	// Bit-vector bitwise/arithmetic operators.
	OpBVNot
	OpBVAnd
	OpBVOr
	OpBVXor
	OpBVAdd

	// OpBVRotateLeft1 rotates its single BitVec argument left by one bit
	// within its declared width. Used by the shifter-parity example instead
	// of a general shift-and-concat encoding.
	OpBVRotateLeft1

	// OpBVPopcountEq is a derived predicate: two arguments (a BitVec term
	// and an Int value term k) and it evaluates to true iff the population
	// count of the first argument equals the literal value of the second.
	OpBVPopcountEq

	// Linear-arithmetic comparisons over Int/Real (spec names these).
	OpLe
	OpLt
	OpGe
	OpGt
)

// String renders an Op the way a solver's s-expression printer names its
// builtin operators.
func (op Op) String() string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	case OpImplies:
		return "=>"
	case OpEqual:
		return "="
	case OpIte:
		return "ite"
	case OpBVUle:
		return "bvule"
	case OpBVUlt:
		return "bvult"
	case OpBVUge:
		return "bvuge"
	case OpBVUgt:
		return "bvugt"
	case OpBVNot:
		return "bvnot"
	case OpBVAnd:
		return "bvand"
	case OpBVOr:
		return "bvor"
	case OpBVXor:
		return "bvxor"
	case OpBVAdd:
		return "bvadd"
	case OpBVRotateLeft1:
		return "bvrotl1"
	case OpBVPopcountEq:
		return "popcount="
	case OpLe:
		return "<="
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpGt:
		return ">"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Term is an opaque handle to a solver-interned expression. Terms are
// immutable and structurally shared; a conforming Solver guarantees
// hash-consing so that Equal reduces to reference identity for two terms it
// produced. The core package never assumes anything more about the concrete
// representation than what this interface exposes.
type Term interface {
	// String returns a human-readable representation of the term.
	String() string

	// Equal reports whether this term is the same solver-interned
	// expression as other.
	Equal(other Term) bool

	// Sort returns the term's sort.
	Sort() Sort

	// IsSymbolicConst reports whether this term is a leaf variable (as
	// opposed to a value or a compound application of an Op).
	IsSymbolicConst() bool

	// IsValue reports whether this term is a constant value literal.
	IsValue() bool

	// Op returns the operator of a compound term, or a no-op sentinel for
	// leaves. Callers should check IsSymbolicConst/IsValue first.
	Op() Op

	// Children returns the operands of a compound term, nil for leaves.
	Children() []Term
}

package refsolver

import (
	"fmt"
	"strings"

	"github.com/gitrdm/mbic3/pkg/mbic3"
)

type termKind int

const (
	kindSymbol termKind = iota
	kindValue
	kindCompound
)

// term is the sole concrete representation this backend ever hands out.
// Every term.go/solver.go method keys into Solver.interned by a canonical
// string built from the term's own shape, so two calls that describe the
// same expression always return the identical *term pointer — mbic3.Term's
// Equal contract reduces to pointer comparison, never a structural walk.
type term struct {
	kind termKind
	sort mbic3.Sort

	name string // kindSymbol only
	lit  any    // kindValue only: bool, or int64 for BitVec/Int

	op   mbic3.Op // kindCompound only
	args []mbic3.Term

	key string
}

// String renders the term the way an s-expression printer would, enough to
// be useful in logs and panics; it is not a parser-round-trippable format.
func (t *term) String() string {
	switch t.kind {
	case kindSymbol:
		return t.name
	case kindValue:
		return fmt.Sprintf("%v", t.lit)
	default:
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(%s %s)", t.op, strings.Join(parts, " "))
	}
}

// Equal relies entirely on interning: two terms describing the same
// expression are always the same *term pointer.
func (t *term) Equal(other mbic3.Term) bool {
	o, ok := other.(*term)
	return ok && o == t
}

func (t *term) Sort() mbic3.Sort { return t.sort }

func (t *term) IsSymbolicConst() bool { return t.kind == kindSymbol }

func (t *term) IsValue() bool { return t.kind == kindValue }

// Op returns the no-op sentinel mbic3.OpAnd for leaves, per the Term
// interface's documented contract that callers check IsSymbolicConst/
// IsValue before relying on it.
func (t *term) Op() mbic3.Op {
	if t.kind != kindCompound {
		return mbic3.OpAnd
	}
	return t.op
}

func (t *term) Children() []mbic3.Term {
	if t.kind != kindCompound {
		return nil
	}
	return t.args
}

// Name satisfies mbic3.Named for symbol terms, letting Engine's interpolation
// wiring pre-cache shared state/next/input symbols by name instead of
// falling back to structural translation.
func (t *term) Name() string { return t.name }

// Literal satisfies the unexported literalHolder interface that package
// mbic3's valueLiteral (solver.go), and so TermTranslator, expect from a
// value term.
func (t *term) Literal() any { return t.lit }

func sortKey(s mbic3.Sort) string {
	return s.String()
}

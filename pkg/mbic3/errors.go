package mbic3

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors a caller can match with errors.Is. Each corresponds to one
// of the error kinds in spec §7.
var (
	// ErrUnknownSymbol is returned when a caller-supplied term mentions a
	// symbol that was never registered with the TransitionSystem.
	ErrUnknownSymbol = errors.New("mbic3: unknown symbol")

	// ErrUnsupportedSort is returned by NewEngine when the transition
	// system has an Array or Uninterpreted sorted state/input variable.
	ErrUnsupportedSort = errors.New("mbic3: unsupported sort")
)

// SolverError wraps an error raised by the Solver (timeout, out-of-memory,
// an incomplete theory, or any other solver-level failure). It always
// surfaces as ResultUnknown from Prove/CheckUntil; no invariant or witness
// claim is made when one occurs.
type SolverError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *SolverError) Error() string {
	return fmt.Sprintf("mbic3: solver error during %s: %v", e.Op, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *SolverError) Unwrap() error {
	return e.Cause
}

// wrapSolverErr wraps a raw error returned by a Solver method into a
// *SolverError carrying the operation name, using pkg/errors so the
// original stack context (when the Solver itself uses pkg/errors) survives.
func wrapSolverErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SolverError{Op: op, Cause: errors.Wrap(err, op)}
}

// InternalInvariantViolation indicates the engine observed a state its own
// invariants say is impossible (e.g. a SAT result for a query already known
// UNSAT, or an empty unsat core where one is required). Spec §7 treats this
// as a bug: the engine does not attempt to recover, it panics with this
// value so the diagnostic carries a full stack trace via recover()+log if
// the caller wants one.
type InternalInvariantViolation struct {
	Msg string
}

// Error implements the error interface for convenience when an
// InternalInvariantViolation is recovered and rewrapped.
func (e *InternalInvariantViolation) Error() string {
	return "mbic3: internal invariant violated: " + e.Msg
}

// panicInvariant raises an InternalInvariantViolation. Kept as a helper so
// every call site reads the same way and stays easy to grep for.
func panicInvariant(format string, args ...any) {
	panic(&InternalInvariantViolation{Msg: fmt.Sprintf(format, args...)})
}

// Package refsolver is a small enumerative implementation of mbic3.Solver
// and mbic3.InterpolatingSolver, used by the bundled CLI scenarios and tests
// where no production SMT binding is wired in. Its symbols range over the
// sorts the reference transition systems in spec §8 need — Bool and
// bounded-width BitVec — and it proves (un)satisfiability by exhaustively
// walking the finite space of assignments to the symbols it has seen,
// rather than by any theory-specific decision procedure. Int values (such
// as a popcount result) are accepted, but an Int symbol makes every
// satisfiability check fail, and MakeSort and MakeValue reject Real: nothing in
// this package bounds their domain, and enumerating an unbounded one does
// not terminate.
//
// This is intentionally not a competitive solver. Its entire reason to
// exist is to give the mbic3 package something real to drive end to end
// without depending on an external binary or cgo binding; anyone wiring
// mbic3 against z3, cvc5, boolector or similar should implement
// mbic3.Solver against that engine's own API instead.
package refsolver

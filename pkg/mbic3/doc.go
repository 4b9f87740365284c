// Package mbic3 implements the core of an SMT-based IC3/PDR engine operating
// on model values ("MBIC3"). Given a symbolic transition system (an initial
// predicate and a transition relation over current- and next-state
// variables) and a safety property, the engine decides whether the property
// holds for all reachable states, producing either an inductive invariant or
// a counterexample trace.
//
// The package treats the underlying SMT solver as an external collaborator
// (the Solver interface in solver.go); front-ends that parse HDL-like
// descriptions into TransitionSystem values, witness printers, and CEGAR
// wrappers all live outside this package. A small reference Solver backend
// for testing and the bundled CLI is provided in the refsolver subpackage.
//
// Engine instances are single-threaded: one Engine owns exclusive use of its
// Solver (and, in interpolation mode, a second interpolating Solver) for its
// entire lifetime. Running many independent checks concurrently is a matter
// of constructing multiple Engines, each with its own Solver; see the
// internal/batch package for a worker pool that does exactly that.
package mbic3

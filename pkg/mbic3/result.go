package mbic3

// Result is the outcome of a Prove/CheckUntil call.
type Result int

const (
	// ResultUnknown means the engine reached its bound, or a solver error
	// occurred, without deciding the property.
	ResultUnknown Result = iota

	// ResultTrue means the property holds for all reachable states; Invar
	// returns an inductive invariant implying it.
	ResultTrue

	// ResultFalse means a counterexample was found; Witness returns it.
	ResultFalse
)

// String renders a Result for log lines and CLI output.
func (r Result) String() string {
	switch r {
	case ResultTrue:
		return "TRUE"
	case ResultFalse:
		return "FALSE"
	default:
		return "UNKNOWN"
	}
}

// Property is a safety property: a Bool-sorted term over state variables
// only, plus an optional diagnostic name (spec §6.2). The engine computes
// bad := ¬Prop internally; a front-end that needs to check a property
// mentioning next-state or input variables must externally introduce a
// monitor state variable before constructing a Property — out of scope
// here.
type Property struct {
	Prop Term
	Name string
}

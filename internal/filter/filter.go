// Package filter decides whether an enriched token satisfies the user's criteria.
package filter

// Decision is the outcome of one evaluation. Failed names the first rejecting check.
type Decision struct {
	Accepted bool
	Failed   string
}

// Filter evaluates a fixed, ordered set of checks as a conjunction.
type Filter struct {
	checks []Check
}

// New builds a Filter. With no checks it uses DefaultChecks.
func New(checks ...Check) *Filter {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	out := make([]Check, 0, len(checks))
	for _, ch := range checks {
		if ch != nil {
			out = append(out, ch)
		}
	}
	return &Filter{checks: out}
}

// Evaluate stops at the first failing check.
func (f *Filter) Evaluate(in Input, c Criteria) Decision {
	c.fillDefaults()
	for _, ch := range f.checks {
		if !ch.Pass(in, c) {
			return Decision{Failed: ch.Name()}
		}
	}
	return Decision{Accepted: true}
}

// Accept is Evaluate reduced to a bool.
func (f *Filter) Accept(in Input, c Criteria) bool {
	return f.Evaluate(in, c).Accepted
}

// Explain runs every check and returns the names of all that failed.
func (f *Filter) Explain(in Input, c Criteria) []string {
	c.fillDefaults()
	var failed []string
	for _, ch := range f.checks {
		if !ch.Pass(in, c) {
			failed = append(failed, ch.Name())
		}
	}
	return failed
}

// CheckNames lists the configured checks in order.
func (f *Filter) CheckNames() []string {
	names := make([]string, 0, len(f.checks))
	for _, ch := range f.checks {
		names = append(names, ch.Name())
	}
	return names
}

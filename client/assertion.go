package client

import "github.com/dan-strohschein/jsonwebdb-driver/protocol"

// Violation is a column whose current value did not match the asserted one.
type Violation struct {
	Column   string
	Expected interface{}
	Actual   interface{}
}

// Assertion is the outcome of the optimistic locking checks attached to a
// statement. It is parsed whenever the response carries assertions,
// whether or not the statement itself succeeded.
type Assertion struct {
	success    bool
	message    string
	violations []Violation
}

func newAssertion() *Assertion {
	return &Assertion{success: true}
}

func (a *Assertion) parse(result *protocol.AssertionResult) {
	a.success = result.Success
	a.message = result.Message
	if a.message == "" {
		a.message = result.Record
	}
	a.violations = a.violations[:0]
	for _, v := range result.Violations {
		a.violations = append(a.violations, Violation{
			Column:   v.Column,
			Expected: v.Expected,
			Actual:   v.Actual,
		})
	}
}

// Failed reports whether any assertion did not hold.
func (a *Assertion) Failed() bool {
	return !a.success
}

// ErrorMessage returns the server's description of the failed check.
func (a *Assertion) ErrorMessage() string {
	return a.message
}

// Violations returns the mismatching columns.
func (a *Assertion) Violations() []Violation {
	return a.violations
}

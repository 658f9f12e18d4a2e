package harness

import "github.com/roach88/sistrence/internal/ir"

// TraceEvent is one statement a backend executed.
type TraceEvent struct {
	Step      int    `json:"step"` // 1-based step index
	Statement string `json:"statement"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every statement executed by the steps, in order.
	// Setup and final_state queries are not part of it.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// State holds the rows read by final_state assertions, keyed by table.
	State map[string][]ir.Row `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]ir.Row),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Statements returns the traced statements without step numbers.
func (r *Result) Statements() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.Statement
	}
	return out
}

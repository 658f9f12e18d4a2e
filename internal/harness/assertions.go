package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/sistrence/internal/op"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d: %s\n", i+1, event.Step, event.Statement)
		}
	}

	return buf.String()
}

// assertTraceContains checks that the exact statement was executed.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Statement == assertion.Statement {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: assertion.Statement,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that statements appear in the specified order.
// They don't need to be consecutive; each is matched at or after the
// position following the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Statements {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Statement == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("statements in order: %q", assertion.Statements),
				Actual:   fmt.Sprintf("%q not found after position %d", want, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count statements start with Prefix.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if strings.HasPrefix(event.Statement, assertion.Prefix) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d statements starting with %q", assertion.Count, assertion.Prefix),
			Actual:   fmt.Sprintf("%d statements", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads the rows of a table through a fresh Operation and
// compares them, in order, with the expected rows. Where becomes one
// field_equals per entry.
func assertFinalState(actx *AssertionContext, result *Result, assertion Assertion) error {
	o := op.New(actx.Backend, assertion.Table, op.WithIDGenerator(actx.IDs))
	if len(assertion.Where) > 0 {
		o.EqAll(assertion.Where.Record())
	}

	rows, err := o.Get(actx.Ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	result.State[assertion.Table] = rows

	if msg, ok := compareRows(assertion.Expect, rows); !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("rows of %s where %s", assertion.Table, formatWhere(assertion.Where)),
			Actual:   msg,
		}
	}
	return nil
}

// formatWhere creates a human-readable description of where entries.
func formatWhere(where Document) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, len(where))
	for i, p := range where {
		parts[i] = fmt.Sprintf("%s=%v", p.Key, p.Value)
	}
	return strings.Join(parts, " AND ")
}

// AssertionContext provides backend access for final_state assertions.
type AssertionContext struct {
	Backend op.Backend
	Ctx     context.Context
	IDs     op.IDGenerator
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Backend == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a backend", i)
			} else {
				err = assertFinalState(actx, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

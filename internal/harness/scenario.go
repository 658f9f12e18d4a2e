package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sistrence/internal/ir"
)

// Scenario is a sequence of operations run against one backend.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects where statements go: mysql, postgres, sqlite or document.
	Backend string `yaml:"backend"`

	// Setup prepares the backend before the first step.
	Setup Setup `yaml:"setup,omitempty"`

	// Steps are executed in order. Each builds a fresh Operation.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Setup prepares a backend. Which part applies depends on the backend.
type Setup struct {
	// SQL statements run on a sqlite backend.
	SQL []string `yaml:"sql,omitempty"`

	// Responses script the recording executor of mysql and postgres backends.
	Responses []Response `yaml:"responses,omitempty"`

	// Documents seed the collections of a document backend.
	Documents map[string][]Document `yaml:"documents,omitempty"`
}

// Response scripts the answer to one exact statement.
type Response struct {
	SQL      string     `yaml:"sql"`
	Rows     []Document `yaml:"rows,omitempty"`
	Scalar   *int64     `yaml:"scalar,omitempty"`
	Affected *int64     `yaml:"affected,omitempty"`

	// Error makes the statement fail with this driver message.
	Error string `yaml:"error,omitempty"`
}

// Step builds one Operation and runs a terminal call on it.
type Step struct {
	Table string `yaml:"table"`

	// Do is the terminal call, one of the Do* constants.
	Do string `yaml:"do"`

	Where []CondSpec `yaml:"where,omitempty"`

	// Drop lists indexes into Where retracted before the terminal call.
	Drop []int `yaml:"drop,omitempty"`

	Joins   []JoinSpec `yaml:"joins,omitempty"`
	Sort    []SortSpec `yaml:"sort,omitempty"`
	Random  bool       `yaml:"random,omitempty"`
	Range   []int64    `yaml:"range,omitempty"` // [start, count]
	Fields  []string   `yaml:"fields,omitempty"`
	GroupBy string     `yaml:"group_by,omitempty"`

	// Data is the payload of insert, update and update_or_insert.
	Data Document `yaml:"data,omitempty"`

	// Only restricts the written keys of insert and update, and the
	// update half of update_or_insert.
	Only []string `yaml:"only,omitempty"`

	// InsertOnly restricts the insert half of update_or_insert.
	InsertOnly []string `yaml:"insert_only,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// CondSpec describes one condition.
//
// Field kinds take Field plus Value, or Ref to compare against a column of
// the step's table. Combinators take their children in Of. Match is the
// multi-field shorthand.
type CondSpec struct {
	Kind   string     `yaml:"kind"`
	Field  string     `yaml:"field,omitempty"`
	Value  any        `yaml:"value,omitempty"`
	Ref    string     `yaml:"ref,omitempty"`
	Escape string     `yaml:"escape,omitempty"`
	Match  Document   `yaml:"match,omitempty"`
	Of     []CondSpec `yaml:"of,omitempty"`
}

// JoinSpec is a joined table with its ON conditions. Fields in On are
// qualified with the joined table.
type JoinSpec struct {
	Table string     `yaml:"table"`
	On    []CondSpec `yaml:"on,omitempty"`
}

// SortSpec is one sort key. Dir is "asc" (default) or "desc".
type SortSpec struct {
	Field string `yaml:"field"`
	Dir   string `yaml:"dir,omitempty"`
}

// Expect is checked against the outcome of a step. Only set fields are
// compared.
type Expect struct {
	// Rows are the rows returned by get. An empty list expects no rows.
	Rows []Document `yaml:"rows,omitempty"`

	// Row is the row returned by get_one; NoRow expects none.
	Row   Document `yaml:"row,omitempty"`
	NoRow bool     `yaml:"no_row,omitempty"`

	Count    *int64 `yaml:"count,omitempty"`
	ID       *int64 `yaml:"id,omitempty"`
	Affected *int64 `yaml:"affected,omitempty"`
	Exists   *bool  `yaml:"exists,omitempty"`

	// Error is the expected error code, e.g. NOT_IMPLEMENTED.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Statement is the exact statement (trace_contains).
	Statement string `yaml:"statement,omitempty"`

	// Statements are expected in this order (trace_order).
	Statements []string `yaml:"statements,omitempty"`

	// Prefix and Count: exactly Count statements start with Prefix (trace_count).
	Prefix string `yaml:"prefix,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// Table, Where and Expect: the rows of Table matching Where equal
	// Expect, in order (final_state).
	Table  string     `yaml:"table,omitempty"`
	Where  Document   `yaml:"where,omitempty"`
	Expect []Document `yaml:"expect,omitempty"`
}

// Backend names.
const (
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendDocument = "document"
)

// Terminal calls.
const (
	DoGet            = "get"
	DoGetOne         = "get_one"
	DoCount          = "count"
	DoInsert         = "insert"
	DoUpdate         = "update"
	DoDelete         = "delete"
	DoUpdateOrInsert = "update_or_insert"
	DoTruncate       = "truncate"
	DoTableExists    = "table_exists"
)

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Document is a YAML mapping that keeps its key order, so inserted columns
// come out in the order they were written.
type Document ir.Record

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	doc := make(Document, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		doc = append(doc, ir.P(key, value))
	}
	*d = doc
	return nil
}

// Record returns the document as an ordered record.
func (d Document) Record() ir.Record {
	return ir.Record(d)
}

// Row returns the document as a row.
func (d Document) Row() ir.Row {
	return ir.Row(ir.Record(d).Map())
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case BackendMySQL, BackendPostgres, BackendSQLite, BackendDocument:
	case "":
		return fmt.Errorf("backend is required")
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if err := validateSetup(s.Backend, s.Setup); err != nil {
		return err
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(s.Backend, a); err != nil {
			return fmt.Errorf("assertion %d: %w", i+1, err)
		}
	}

	return nil
}

func validateSetup(backend string, setup Setup) error {
	if len(setup.SQL) > 0 && backend != BackendSQLite {
		return fmt.Errorf("setup.sql requires the sqlite backend")
	}
	if len(setup.Responses) > 0 && backend != BackendMySQL && backend != BackendPostgres {
		return fmt.Errorf("setup.responses requires the mysql or postgres backend")
	}
	if len(setup.Documents) > 0 && backend != BackendDocument {
		return fmt.Errorf("setup.documents requires the document backend")
	}
	for i, r := range setup.Responses {
		if r.SQL == "" {
			return fmt.Errorf("setup.responses[%d]: sql is required", i)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Table == "" {
		return fmt.Errorf("table is required")
	}

	switch step.Do {
	case DoGet, DoGetOne, DoCount, DoDelete, DoTruncate, DoTableExists:
	case DoInsert, DoUpdate, DoUpdateOrInsert:
		if len(step.Data) == 0 {
			return fmt.Errorf("%s requires data", step.Do)
		}
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown call %q", step.Do)
	}

	for _, i := range step.Drop {
		if i < 0 || i >= len(step.Where) {
			return fmt.Errorf("drop index %d out of range", i)
		}
	}
	if len(step.Range) != 0 && len(step.Range) != 2 {
		return fmt.Errorf("range takes [start, count]")
	}
	for _, s := range step.Sort {
		if s.Field == "" {
			return fmt.Errorf("sort field is required")
		}
		if s.Dir != "" && s.Dir != "asc" && s.Dir != "desc" {
			return fmt.Errorf("sort direction %q: want asc or desc", s.Dir)
		}
	}
	for _, j := range step.Joins {
		if j.Table == "" {
			return fmt.Errorf("join table is required")
		}
	}
	return nil
}

// validateAssertion checks assertion-specific required fields.
func validateAssertion(backend string, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Statement == "" {
			return fmt.Errorf("trace_contains requires statement")
		}
	case AssertTraceOrder:
		if len(a.Statements) < 2 {
			return fmt.Errorf("trace_order requires at least 2 statements")
		}
	case AssertTraceCount:
		if a.Prefix == "" {
			return fmt.Errorf("trace_count requires prefix")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count count must be non-negative")
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("final_state requires table")
		}
		if backend != BackendSQLite && backend != BackendDocument {
			return fmt.Errorf("final_state requires a sqlite or document backend")
		}
	case "":
		return fmt.Errorf("assertion type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// Package harness runs scenario files against a query backend and checks
// the statements the backend executed.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	backend: sqlite            # mysql, postgres, sqlite or document
//	setup:
//	  sql:                     # sqlite: run before the steps, not traced
//	    - CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)
//	  responses:               # mysql/postgres: scripted answers
//	    - sql: "SELECT COUNT(*) FROM `users`"
//	      scalar: 3
//	  documents:               # document: seeded collections
//	    users:
//	      - { name: Ann, age: 30 }
//	steps:
//	  - table: users
//	    do: get
//	    where:
//	      - { kind: gt, field: age, value: 18 }
//	      - { kind: or, of: [ ... ] }
//	    sort: [{ field: name, dir: asc }]
//	    range: [0, 10]
//	    expect:
//	      rows: [{ name: Ann, age: 30 }]
//	assertions:
//	  - type: trace_contains
//	    statement: "SELECT * FROM ..."
//	  - type: final_state
//	    table: users
//	    where: { name: Ann }
//	    expect: [{ name: Ann, age: 30 }]
//
// # Backends
//
// mysql and postgres run against testutil.RecordingExecutor, so nothing
// leaves the process and unscripted statements get default answers. sqlite
// opens a private in-memory database through sqlconn. document uses
// testutil.MemoryStore, whose trace lines are the store calls.
//
// # Assertion Types
//
//   - trace_contains: a statement appears in the trace
//   - trace_order: statements appear in the given order
//   - trace_count: the number of statements starting with a prefix
//   - final_state: rows of a table after the steps (sqlite and document)
//
// # Determinism
//
// Operation ids come from testutil.FixedIDGenerator and insert ids from the
// recording executor's sequence, so a trace is identical on every run and
// can be compared with a golden file:
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

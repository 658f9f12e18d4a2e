// Package shard maps table names to link ids.
package shard

import "github.com/zeebo/xxh3"

// Sharder picks the link a table lives on.
type Sharder interface {
	Resolve(table string) int
}

// Single sends every table to one link.
type Single int

// Resolve returns the fixed link id.
func (s Single) Resolve(string) int {
	return int(s)
}

// Hash spreads tables over links 0..Links-1 by the xxh3 hash of the table
// name. The mapping is stable for a given link count.
type Hash struct {
	Links int
}

// Resolve returns the link for table. A non-positive link count resolves
// everything to link 0.
func (h Hash) Resolve(table string) int {
	if h.Links <= 1 {
		return 0
	}
	return int(xxh3.HashString(table) % uint64(h.Links))
}

// Table routes listed tables to fixed links and the rest through Fallback.
type Table struct {
	Routes   map[string]int
	Fallback Sharder
}

// Resolve returns the routed link, or asks Fallback. A nil Fallback
// resolves unrouted tables to link 0.
func (t Table) Resolve(table string) int {
	if id, ok := t.Routes[table]; ok {
		return id
	}
	if t.Fallback == nil {
		return 0
	}
	return t.Fallback.Resolve(table)
}

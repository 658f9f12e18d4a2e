// Package config loads link definitions from YAML or CUE files.
//
// Example (YAML):
//
//	links:
//	  - id: 0
//	    driver: sqlite
//	    dsn: app.db
//	  - id: 1
//	    driver: mongo
//	    dsn: mongodb://localhost:27017
//	    database: app
//	sharding:
//	  strategy: table
//	  routes:
//	    events: 1
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/shard"
)

// Driver names accepted in link definitions.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Sharding strategies.
const (
	StrategySingle = "single"
	StrategyHash   = "hash"
	StrategyTable  = "table"
)

// Config is the top-level configuration file.
type Config struct {
	Links    []Link   `yaml:"links" json:"links"`
	Sharding Sharding `yaml:"sharding" json:"sharding"`
}

// Link defines one connection.
type Link struct {
	ID       int    `yaml:"id" json:"id"`
	Driver   string `yaml:"driver" json:"driver"`
	DSN      string `yaml:"dsn" json:"dsn"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
}

// Sharding selects how tables are routed to links.
// An empty strategy is "single" on link 0.
type Sharding struct {
	Strategy string         `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Link     int            `yaml:"link,omitempty" json:"link,omitempty"`
	Routes   map[string]int `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// Load reads and validates the file at path. Files ending in .cue are
// evaluated as CUE; everything else is parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberr.Config(fmt.Sprintf("read %s", path), err)
	}

	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		cfg, err = ParseCUE(data, path)
	} else {
		cfg, err = ParseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseYAML decodes and validates a YAML document. Unknown fields are
// rejected.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, dberr.Config("parse yaml", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCUE evaluates a CUE document and decodes it. filename is used in
// error positions only.
func ParseCUE(data []byte, filename string) (*Config, error) {
	value := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, dberr.Config("compile cue", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, dberr.Config("cue value is not concrete", err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, dberr.Config("decode cue", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks link definitions and the sharding strategy.
func (c *Config) Validate() error {
	if len(c.Links) == 0 {
		return dberr.Config("no links defined", nil)
	}

	seen := make(map[int]bool, len(c.Links))
	for i := range c.Links {
		l := &c.Links[i]
		l.Driver = NormalizeDriver(l.Driver)
		if seen[l.ID] {
			return dberr.Config(fmt.Sprintf("link %d: duplicate id", l.ID), nil)
		}
		seen[l.ID] = true

		switch l.Driver {
		case DriverSQLite, DriverMySQL, DriverPostgres:
		case DriverMongo:
			if l.Database == "" {
				return dberr.Config(fmt.Sprintf("link %d: mongo links need a database", l.ID), nil)
			}
		default:
			return dberr.Config(fmt.Sprintf("link %d: unknown driver %q", l.ID, l.Driver), nil)
		}
		if l.DSN == "" {
			return dberr.Config(fmt.Sprintf("link %d: dsn is required", l.ID), nil)
		}
	}

	switch c.Sharding.Strategy {
	case "", StrategySingle, StrategyTable:
	case StrategyHash:
		if len(c.Links) < 2 {
			return dberr.Config("hash sharding needs at least two links", nil)
		}
	default:
		return dberr.Config(fmt.Sprintf("unknown sharding strategy %q", c.Sharding.Strategy), nil)
	}
	for table, id := range c.Sharding.Routes {
		if !seen[id] {
			return dberr.Config(fmt.Sprintf("route %q: link %d is not defined", table, id), nil)
		}
	}
	if c.Sharding.Strategy != StrategyHash && !seen[c.Sharding.Link] {
		return dberr.Config(fmt.Sprintf("sharding: link %d is not defined", c.Sharding.Link), nil)
	}
	return nil
}

// Sharder builds the configured sharder.
//
// Hash sharding spreads over links 0..n-1, so link ids must be dense for it
// to reach every link.
func (c *Config) Sharder() shard.Sharder {
	switch c.Sharding.Strategy {
	case StrategyHash:
		return shard.Hash{Links: len(c.Links)}
	case StrategyTable:
		return shard.Table{Routes: c.Sharding.Routes, Fallback: shard.Single(c.Sharding.Link)}
	default:
		return shard.Single(c.Sharding.Link)
	}
}

// NormalizeDriver maps driver aliases to their canonical name.
func NormalizeDriver(name string) string {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "mysql":
		return DriverMySQL
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	case "mongo", "mongodb":
		return DriverMongo
	default:
		return strings.ToLower(name)
	}
}

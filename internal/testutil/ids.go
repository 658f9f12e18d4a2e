package testutil

import (
	"fmt"
	"io"
	"log/slog"
)

// FixedIDGenerator hands out predictable operation ids.
//
// The ids are "<prefix>-1", "<prefix>-2", ... so that log output and
// golden traces are identical across runs. An empty prefix defaults to
// "test-op".
type FixedIDGenerator struct {
	prefix string
	seq    *Sequence
}

// NewFixedIDGenerator creates a generator with the given prefix.
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test-op"
	}
	return &FixedIDGenerator{prefix: prefix, seq: NewSequence()}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.seq.Next())
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates numbered tokens: "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// Unlike capture.FixedGenerator, it never runs out, so a test does not need
// to know how many tokens a run will mint.
//
// Thread-safety: safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix becomes "test".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
//
// Implements capture.TokenGenerator.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Issued returns how many tokens have been generated.
func (g *SequentialTokens) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

package testutil

import (
	"fmt"
	"sync"
)

// SequentialPassIDs generates "pass-1", "pass-2", ... for tests.
//
// It never runs out, and it can be reset so
// the same scenario produces identical pass ids on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialPassIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialPassIDs creates a generator. An empty prefix means "pass".
func NewSequentialPassIDs(prefix string) *SequentialPassIDs {
	if prefix == "" {
		prefix = "pass"
	}
	return &SequentialPassIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.PassIDGenerator.
func (g *SequentialPassIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Count returns how many ids have been generated since the last reset.
func (g *SequentialPassIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset starts the sequence over. The next Generate returns "<prefix>-1".
func (g *SequentialPassIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

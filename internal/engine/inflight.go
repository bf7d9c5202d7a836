package engine

import (
	"context"
	"sync"
	"time"

	"github.com/droqlabs/toolnode/internal/maputil"
)

// Entry describes one running execution.
type Entry struct {
	// ExecutionID uniquely identifies the invocation.
	ExecutionID string
	// CorrelationID links the invocation to its request.
	CorrelationID string
	// ToolID names the executing tool.
	ToolID string
	// StartedAt is the invocation start time.
	StartedAt time.Time

	cancel context.CancelFunc
}

// Inflight tracks currently running executions. The engine owns all
// mutations; the lifecycle coordinator reads it during drain. The mutex
// guards only insert and remove, never the execution itself.
type Inflight struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewInflight returns an empty in-flight set.
func NewInflight() *Inflight {
	return &Inflight{entries: make(map[string]*Entry)}
}

// Add registers a running execution under its execution id.
func (s *Inflight) Add(executionID, correlationID, toolID string, cancel context.CancelFunc) {
	entry := &Entry{
		ExecutionID:   executionID,
		CorrelationID: correlationID,
		ToolID:        toolID,
		StartedAt:     time.Now().UTC(),
		cancel:        cancel,
	}
	s.mu.Lock()
	s.entries[executionID] = entry
	s.mu.Unlock()
}

// Remove deregisters an execution; unknown ids are ignored.
func (s *Inflight) Remove(executionID string) {
	maputil.Pop(&s.mu, s.entries, executionID)
}

// Len returns the number of running executions.
func (s *Inflight) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the current entries for read-only inspection.
func (s *Inflight) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	return out
}

// CancelAll fires the cancellation handle of every running execution and
// returns how many were signalled. Cancellation is cooperative; entries
// leave the set when their executions observe it.
func (s *Inflight) CancelAll() int {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.entries))
	for _, entry := range s.entries {
		cancels = append(cancels, entry.cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

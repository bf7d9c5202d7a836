// Package lifecycle coordinates graceful shutdown: it flips the node out
// of accepting mode, waits for in-flight executions to finish, and
// force-cancels whatever remains when the drain deadline passes.
package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/engine"
)

// Node states. Transitions only move forward; Stopped is terminal.
const (
	StateRunning int32 = iota
	StateDraining
	StateStopped
)

// StateName returns a human-readable state label.
func StateName(state int32) string {
	switch state {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const drainPollInterval = 25 * time.Millisecond

// Coordinator owns the node state machine. Gateways consult Accepting
// before admitting work; Shutdown drives the drain sequence exactly once.
type Coordinator struct {
	state        atomic.Int32
	inflight     *engine.Inflight
	drainTimeout time.Duration
	logger       *zap.Logger
	done         chan struct{}
}

// NewCoordinator returns a coordinator in the Running state.
func NewCoordinator(inflight *engine.Inflight, drainTimeout time.Duration, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if drainTimeout <= 0 {
		drainTimeout = 25 * time.Second
	}
	return &Coordinator{
		inflight:     inflight,
		drainTimeout: drainTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// State returns the current node state.
func (c *Coordinator) State() int32 {
	return c.state.Load()
}

// Accepting reports whether new executions may be admitted. It is false
// from the moment draining begins.
func (c *Coordinator) Accepting() bool {
	return c.state.Load() == StateRunning
}

// Shutdown moves the node to Draining, waits for in-flight executions up
// to the drain deadline, force-cancels the rest, and lands in Stopped.
// Only the first caller drives the sequence; later callers block until it
// completes.
func (c *Coordinator) Shutdown(ctx context.Context) {
	if !c.state.CompareAndSwap(StateRunning, StateDraining) {
		<-c.done
		return
	}
	defer close(c.done)
	defer c.state.Store(StateStopped)

	c.logger.Info("draining",
		zap.Int("inflight", c.inflight.Len()),
		zap.Duration("drain_timeout", c.drainTimeout),
	)

	deadline := time.NewTimer(c.drainTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for c.inflight.Len() > 0 {
		select {
		case <-ticker.C:
		case <-deadline.C:
			canceled := c.inflight.CancelAll()
			c.logger.Warn("drain deadline exceeded, canceling executions",
				zap.Int("canceled", canceled),
			)
			c.awaitCanceled(ctx)
			return
		case <-ctx.Done():
			canceled := c.inflight.CancelAll()
			c.logger.Warn("shutdown context canceled, canceling executions",
				zap.Int("canceled", canceled),
			)
			return
		}
	}
	c.logger.Info("drain complete")
}

// awaitCanceled gives force-canceled executions a short window to unwind
// so their outcomes are still published before the process exits.
func (c *Coordinator) awaitCanceled(ctx context.Context) {
	grace := time.NewTimer(time.Second)
	defer grace.Stop()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for c.inflight.Len() > 0 {
		select {
		case <-ticker.C:
		case <-grace.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

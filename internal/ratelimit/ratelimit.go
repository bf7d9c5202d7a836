package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterState struct {
	perMinute int
	limiter   *rate.Limiter
}

// Limiter enforces per-tool execution rate budgets. Limiters are created
// lazily from each descriptor's declared budget and rebuilt when a
// manifest reload changes it.
type Limiter struct {
	mu     sync.Mutex
	byTool map[string]*limiterState
}

// New returns an empty limiter set.
func New() *Limiter {
	return &Limiter{byTool: make(map[string]*limiterState)}
}

// Allow reports whether one more execution of toolID fits within the
// perMinute budget. A non-positive budget never limits.
func (l *Limiter) Allow(toolID string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	state, ok := l.byTool[toolID]
	if !ok || state.perMinute != perMinute {
		state = &limiterState{
			perMinute: perMinute,
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		l.byTool[toolID] = state
	}
	l.mu.Unlock()

	return state.limiter.Allow()
}

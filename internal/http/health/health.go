package health

import (
	"net/http"
	"sync/atomic"
)

// Check reports one readiness condition; a non-nil error marks the node
// not ready.
type Check func() error

// Handler serves liveness and readiness probes. Readiness combines the
// serving flag, flipped by the server lifecycle, with caller-supplied
// checks such as manifest load state.
type Handler struct {
	serving atomic.Bool
	checks  []Check
}

// New returns a health handler with the given readiness checks.
func New(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

// SetReady marks the server as serving.
func (h *Handler) SetReady() {
	h.serving.Store(true)
}

// SetNotReady marks the server as no longer serving.
func (h *Handler) SetNotReady() {
	h.serving.Store(false)
}

// Ready reports the combined readiness state.
func (h *Handler) Ready() bool {
	if !h.serving.Load() {
		return false
	}
	for _, check := range h.checks {
		if err := check(); err != nil {
			return false
		}
	}
	return true
}

// Healthz handles liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz handles readiness probes.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if h.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

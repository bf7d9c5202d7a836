// Package api implements the synchronous HTTP gateway: a thin JSON layer
// over the dispatcher. It maps outcome statuses onto HTTP status codes
// and adds nothing else; all execution semantics live behind the
// dispatcher.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/dispatch"
	"github.com/droqlabs/toolnode/internal/events"
	"github.com/droqlabs/toolnode/internal/lifecycle"
	"github.com/droqlabs/toolnode/internal/protocol"
	"github.com/droqlabs/toolnode/internal/registry"
)

const maxRequestBody = 1 << 20

// Handler serves the execution API.
type Handler struct {
	dispatcher  *dispatch.Dispatcher
	registry    *registry.Registry
	coordinator *lifecycle.Coordinator
	logger      *zap.Logger
	mux         *http.ServeMux
}

// New builds the gateway and wires its routes.
func New(dispatcher *dispatch.Dispatcher, reg *registry.Registry, coordinator *lifecycle.Coordinator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		dispatcher:  dispatcher,
		registry:    reg,
		coordinator: coordinator,
		logger:      logger,
		mux:         http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /api/v1/tools", h.handleTools)
	h.mux.HandleFunc("POST /api/v1/execute", h.handleExecute)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type infoResponse struct {
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Tools   int    `json:"tools"`
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	resp := infoResponse{Service: "toolnode"}
	if snap := h.registry.Current(); snap != nil {
		if snap.Name != "" {
			resp.Service = snap.Name
		}
		resp.Version = snap.Version
		resp.Tools = snap.Size()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Node    string `json:"node,omitempty"`
	Version string `json:"version,omitempty"`
	Tools   int    `json:"tools"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := h.coordinator.State()
	resp := healthResponse{
		Status: "ready",
		State:  lifecycle.StateName(state),
	}
	if snap := h.registry.Current(); snap != nil {
		resp.Node = snap.Name
		resp.Version = snap.Version
		resp.Tools = snap.Size()
	}

	code := http.StatusOK
	switch {
	case !h.registry.Loaded():
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	case state != lifecycle.StateRunning:
		resp.Status = "draining"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, resp)
}

type toolSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category"`
	Locator       string   `json:"locator"`
	Timeout       string   `json:"timeout,omitempty"`
	RatePerMinute int      `json:"rate_per_minute,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Resolved      bool     `json:"resolved"`
}

type toolListResponse struct {
	Tools []toolSummary `json:"tools"`
	Count int           `json:"count"`
}

func (h *Handler) handleTools(w http.ResponseWriter, _ *http.Request) {
	snap := h.registry.Current()
	if snap == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "manifest not loaded"})
		return
	}

	descriptors := snap.Descriptors()
	resp := toolListResponse{
		Tools: make([]toolSummary, 0, len(descriptors)),
		Count: len(descriptors),
	}
	for _, desc := range descriptors {
		summary := toolSummary{
			ID:            desc.ID,
			Title:         desc.Title,
			Description:   desc.Description,
			Category:      desc.Category,
			Locator:       desc.Locator,
			RatePerMinute: desc.RatePerMinute,
			Tags:          desc.Tags,
			Resolved:      desc.Runner != nil,
		}
		if desc.Timeout > 0 {
			summary.Timeout = desc.Timeout.String()
		}
		resp.Tools = append(resp.Tools, summary)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		outcome := protocol.Failure(req.CorrelationID, protocol.KindInvalidInput,
			"malformed request body: "+err.Error(), false)
		h.writeJSON(w, http.StatusBadRequest, outcome)
		return
	}

	if !h.coordinator.Accepting() {
		outcome := protocol.Failure(req.CorrelationID, protocol.KindCapacityExceeded,
			"node is shutting down", true)
		h.writeJSON(w, http.StatusServiceUnavailable, outcome)
		return
	}

	outcome := h.dispatcher.Handle(r.Context(), req, events.SourceSync)
	h.writeJSON(w, statusCode(outcome), outcome)
}

// statusCode maps an outcome onto an HTTP status. Retryable tool
// failures map to 502, permanent ones to 500.
func statusCode(outcome protocol.Outcome) int {
	switch outcome.Status {
	case protocol.StatusSuccess:
		return http.StatusOK
	case protocol.StatusNotFound:
		return http.StatusNotFound
	case protocol.StatusTimeout:
		return http.StatusGatewayTimeout
	}
	if outcome.Error == nil {
		return http.StatusInternalServerError
	}
	switch outcome.Error.Kind {
	case protocol.KindInvalidInput:
		return http.StatusBadRequest
	case protocol.KindNotFound:
		return http.StatusNotFound
	case protocol.KindCapacityExceeded:
		return http.StatusServiceUnavailable
	}
	if outcome.Error.Retryable {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("response encode failed", zap.Error(err))
	}
}

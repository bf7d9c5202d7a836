package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Writer is the interface for recording execution events.
// Write must never block the dispatch path.
type Writer interface {
	Write(event *ExecutionEvent)
	Close()
}

// ExecutionEvent is a single tool execution record to be persisted.
type ExecutionEvent struct {
	ExecutionID   string
	CorrelationID string
	ToolID        string
	Category      string
	Status        string
	ErrorKind     string
	Retryable     bool
	Source        string // "sync" or "async"
	StartedAt     time.Time
	ElapsedMS     int64
	InputPreview  string
	ResultPreview string
}

// Event sources.
const (
	SourceSync  = "sync"
	SourceAsync = "async"
)

// Preview renders a bounded JSON preview of a payload for event storage.
// Callers redact sensitive values before building the preview.
func Preview(value map[string]any, maxChars int) string {
	if len(value) == 0 {
		return ""
	}
	data, err := json.Marshal(value)
	s := ""
	if err != nil {
		s = fmt.Sprintf("%v", value)
	} else {
		s = string(data)
	}
	if maxChars > 0 && len(s) > maxChars {
		s = s[:maxChars]
	}
	return s
}

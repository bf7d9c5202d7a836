package protocol

// Execution outcome statuses.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusTimeout  = "timeout"
	StatusNotFound = "not_found"
)

// Error kinds carried inside failure-bearing outcomes.
const (
	KindInvalidInput     = "invalid_input"
	KindNotFound         = "not_found"
	KindToolFailure      = "tool_failure"
	KindTimeout          = "timeout"
	KindCapacityExceeded = "capacity_exceeded"
)

// Request is the wire form of an execution request accepted by both
// gateways.
type Request struct {
	// ToolID names the tool to execute.
	ToolID string `json:"tool_id"`
	// Input is the structured tool input.
	Input map[string]any `json:"input"`
	// CorrelationID links the outcome back to this request.
	CorrelationID string `json:"correlation_id,omitempty"`
	// TimeoutMS overrides the execution deadline in milliseconds.
	TimeoutMS int `json:"timeout_ms,omitempty"`
	// Metadata carries transport headers and trace context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorDetail describes a non-success outcome.
type ErrorDetail struct {
	// Kind is one of the Kind* constants.
	Kind string `json:"kind"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Retryable hints whether retrying the request may succeed.
	Retryable bool `json:"retryable"`
}

// Outcome is the wire form of an execution result. Exactly one of Result
// and Error is populated.
type Outcome struct {
	// Status is one of the Status* constants.
	Status string `json:"status"`
	// CorrelationID echoes the request correlation id.
	CorrelationID string `json:"correlation_id"`
	// Result is the tool output, present only on success.
	Result map[string]any `json:"result,omitempty"`
	// Error describes the failure, present on every non-success status.
	Error *ErrorDetail `json:"error,omitempty"`
	// ElapsedMS is the observed execution duration.
	ElapsedMS int64 `json:"elapsed_ms,omitempty"`
}

// Success builds a success outcome.
func Success(correlationID string, result map[string]any) Outcome {
	return Outcome{
		Status:        StatusSuccess,
		CorrelationID: correlationID,
		Result:        result,
	}
}

// Failure builds a failure outcome with the given kind.
func Failure(correlationID, kind, message string, retryable bool) Outcome {
	return Outcome{
		Status:        StatusFailure,
		CorrelationID: correlationID,
		Error:         &ErrorDetail{Kind: kind, Message: message, Retryable: retryable},
	}
}

// Timeout builds a timeout outcome. Timeouts are always marked
// retryable.
func Timeout(correlationID, message string) Outcome {
	return Outcome{
		Status:        StatusTimeout,
		CorrelationID: correlationID,
		Error:         &ErrorDetail{Kind: KindTimeout, Message: message, Retryable: true},
	}
}

// NotFound builds an unknown-tool outcome.
func NotFound(correlationID, toolID string) Outcome {
	return Outcome{
		Status:        StatusNotFound,
		CorrelationID: correlationID,
		Error: &ErrorDetail{
			Kind:    KindNotFound,
			Message: "unknown tool: " + toolID,
		},
	}
}

// IsCapacity reports whether the outcome is a backpressure rejection. The
// async gateway leaves such messages unacknowledged instead of publishing
// the outcome.
func (o Outcome) IsCapacity() bool {
	return o.Error != nil && o.Error.Kind == KindCapacityExceeded
}

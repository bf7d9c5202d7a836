package tools

import (
	"context"
	"errors"
	"fmt"
)

// Tool is the uniform capability contract behind every manifest locator.
// Implementations must be safe for concurrent invocations and must not
// share mutable state across calls.
type Tool interface {
	// Invoke runs the tool against the merged input and returns its
	// structured output or a fault.
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Spec carries the manifest declaration a builder receives.
type Spec struct {
	// ID is the tool identifier.
	ID string
	// Locator is the dotted-path implementation reference.
	Locator string
	// Params holds the tool's static configuration from the manifest.
	Params map[string]any
}

// Builder constructs a Tool from its manifest spec.
type Builder func(spec Spec) (Tool, error)

// ErrUnknownLocator marks a locator with no compiled-in implementation.
var ErrUnknownLocator = errors.New("unknown locator")

var builders = map[string]Builder{
	"builtin.echo":         newEcho,
	"builtin.shell":        newShell,
	"builtin.http_request": newHTTPRequest,
}

// Known reports whether locator maps to a compiled-in implementation.
func Known(locator string) bool {
	_, ok := builders[locator]
	return ok
}

// Resolve constructs the tool behind spec.Locator. The lookup happens once
// at registry build time, never per request.
func Resolve(spec Spec) (Tool, error) {
	builder, ok := builders[spec.Locator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocator, spec.Locator)
	}
	tool, err := builder(spec)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", spec.ID, err)
	}
	return tool, nil
}

// Error is a tool-declared failure carrying retry semantics. Tools return
// a transient Error when the fault stems from a condition that may clear
// (an unavailable upstream, for instance) and a permanent one otherwise.
type Error struct {
	// Message describes the failure.
	Message string
	// Retryable hints whether retrying may succeed.
	Retryable bool
}

func (e *Error) Error() string {
	return e.Message
}

// Transientf builds a retryable tool error.
func Transientf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Retryable: true}
}

// Permanentf builds a non-retryable tool error.
func Permanentf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Retryable: false}
}

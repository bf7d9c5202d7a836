package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/protocol"
	"github.com/droqlabs/toolnode/internal/registry"
	"github.com/droqlabs/toolnode/internal/timeutil"
	"github.com/droqlabs/toolnode/internal/tools"
)

// invokeResult carries a tool's return values out of its goroutine.
type invokeResult struct {
	output map[string]any
	err    error
}

// Engine runs resolved tools under a deadline, isolates their faults, and
// normalizes every exit path into an outcome. No fault from a tool
// invocation propagates past Execute.
type Engine struct {
	inflight *Inflight
	logger   *zap.Logger
}

// New creates an engine backed by the given in-flight set.
func New(inflight *Inflight, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{inflight: inflight, logger: logger}
}

// Inflight exposes the in-flight set for the lifecycle coordinator.
func (e *Engine) Inflight() *Inflight {
	return e.inflight
}

// Execute invokes desc's tool with the request input under the given
// timeout. The caller must ensure desc.Runner is non-nil.
//
// The tool runs in its own goroutine writing to a 1-buffered channel, so
// the select below can return on the deadline without racing the tool: a
// late result lands in the buffer and is discarded, never delivered twice.
func (e *Engine) Execute(ctx context.Context, desc *registry.Descriptor, req protocol.Request, timeout time.Duration) protocol.Outcome {
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	executionID := uuid.New().String()
	e.inflight.Add(executionID, req.CorrelationID, desc.ID, cancel)
	defer e.inflight.Remove(executionID)

	ch := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("tool panic recovered",
					zap.String("tool_id", desc.ID),
					zap.String("correlation_id", req.CorrelationID),
					zap.Any("panic", r),
				)
				ch <- invokeResult{err: fmt.Errorf("tool panic: %v", r)}
			}
		}()
		output, err := desc.Runner.Invoke(execCtx, req.Input)
		ch <- invokeResult{output: output, err: err}
	}()

	var outcome protocol.Outcome
	select {
	case res := <-ch:
		outcome = e.classify(desc, req, res, timeout)
	case <-execCtx.Done():
		outcome = e.interrupted(execCtx, desc, req, timeout)
	}
	outcome.ElapsedMS = timeutil.Millis(time.Since(start))
	return outcome
}

// classify converts a tool's return values into an outcome.
func (e *Engine) classify(desc *registry.Descriptor, req protocol.Request, res invokeResult, timeout time.Duration) protocol.Outcome {
	if res.err == nil {
		if err := validateOutput(desc, res.output); err != nil {
			return protocol.Failure(req.CorrelationID, protocol.KindToolFailure,
				fmt.Sprintf("output schema validation failed: %v", err), false)
		}
		return protocol.Success(req.CorrelationID, res.output)
	}

	if errors.Is(res.err, context.DeadlineExceeded) {
		return protocol.Timeout(req.CorrelationID, timeoutMessage(timeout))
	}
	if errors.Is(res.err, context.Canceled) {
		return protocol.Failure(req.CorrelationID, protocol.KindToolFailure, "execution canceled", true)
	}

	var toolErr *tools.Error
	if errors.As(res.err, &toolErr) {
		return protocol.Failure(req.CorrelationID, protocol.KindToolFailure, toolErr.Message, toolErr.Retryable)
	}
	return protocol.Failure(req.CorrelationID, protocol.KindToolFailure, res.err.Error(), false)
}

// interrupted handles the deadline/cancellation branch. The cancellation
// signal to the tool is best effort only; nothing assumes it is honored.
func (e *Engine) interrupted(execCtx context.Context, desc *registry.Descriptor, req protocol.Request, timeout time.Duration) protocol.Outcome {
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("execution deadline exceeded",
			zap.String("tool_id", desc.ID),
			zap.String("correlation_id", req.CorrelationID),
			zap.Duration("timeout", timeout),
		)
		return protocol.Timeout(req.CorrelationID, timeoutMessage(timeout))
	}
	return protocol.Failure(req.CorrelationID, protocol.KindToolFailure, "execution canceled", true)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("execution exceeded %s deadline", timeout)
}

// validateOutput checks tool output against the declared output schema.
// The output is round-tripped through JSON first so the validator sees
// the same value shapes a JSON decode would produce.
func validateOutput(desc *registry.Descriptor, output map[string]any) error {
	if desc.OutputSchema == nil {
		return nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	return desc.OutputSchema.Validate(normalized)
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/droqlabs/toolnode/internal/engine"
	"github.com/droqlabs/toolnode/internal/events"
	"github.com/droqlabs/toolnode/internal/idempotency"
	"github.com/droqlabs/toolnode/internal/maputil"
	"github.com/droqlabs/toolnode/internal/protocol"
	"github.com/droqlabs/toolnode/internal/ratelimit"
	"github.com/droqlabs/toolnode/internal/registry"
	"github.com/droqlabs/toolnode/internal/security"
	"github.com/droqlabs/toolnode/internal/timeutil"
)

// Options configures a Dispatcher.
type Options struct {
	// Registry resolves tool identifiers.
	Registry *registry.Registry
	// Engine executes resolved tools.
	Engine *engine.Engine
	// Limiter applies per-tool rate budgets.
	Limiter *ratelimit.Limiter
	// Cache replays successful outcomes for repeated requests; nil
	// disables replay.
	Cache *idempotency.Cache
	// CacheKeyStrategy selects how cache keys are computed.
	CacheKeyStrategy string
	// Events records execution events.
	Events events.Writer
	// MaxConcurrent bounds concurrent executions.
	MaxConcurrent int
	// DefaultTimeout applies when neither request nor tool declares one.
	DefaultTimeout time.Duration
	// PreviewMaxChars truncates event payload previews.
	PreviewMaxChars int
	// Logger is used for structured logging.
	Logger *zap.Logger
}

// Dispatcher is the single entry point for both gateways: it validates
// request shape, resolves the tool, applies backpressure, and delegates to
// the engine. Transport concerns (status codes, message acks) stay in the
// gateways.
type Dispatcher struct {
	registry       *registry.Registry
	engine         *engine.Engine
	limiter        *ratelimit.Limiter
	cache          *idempotency.Cache
	keyStrategy    string
	events         events.Writer
	sem            *semaphore.Weighted
	defaultTimeout time.Duration
	previewMax     int
	logger         *zap.Logger
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	defaultTimeout := opts.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Dispatcher{
		registry:       opts.Registry,
		engine:         opts.Engine,
		limiter:        limiter,
		cache:          opts.Cache,
		keyStrategy:    opts.CacheKeyStrategy,
		events:         opts.Events,
		sem:            semaphore.NewWeighted(int64(maxConcurrent)),
		defaultTimeout: defaultTimeout,
		previewMax:     opts.PreviewMaxChars,
		logger:         logger,
	}
}

// Handle runs one execution request end to end and returns its outcome.
// Every error becomes an outcome value; Handle never panics on tool
// misbehavior.
func (d *Dispatcher) Handle(ctx context.Context, req protocol.Request, source string) protocol.Outcome {
	providedID := strings.TrimSpace(req.CorrelationID) != ""
	if !providedID {
		req.CorrelationID = uuid.New().String()
	}
	start := time.Now().UTC()

	d.logger.Info("execution request",
		zap.String("tool_id", req.ToolID),
		zap.String("correlation_id", req.CorrelationID),
		zap.String("source", source),
		zap.Any("input", security.RedactInput(req.Input)),
	)

	desc, outcome := d.dispatch(ctx, &req, providedID)
	d.record(desc, req, outcome, source, start)
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, req *protocol.Request, providedID bool) (*registry.Descriptor, protocol.Outcome) {
	if strings.TrimSpace(req.ToolID) == "" {
		return nil, protocol.Failure(req.CorrelationID, protocol.KindInvalidInput, "tool_id is required", false)
	}

	desc, ok := d.registry.Lookup(req.ToolID)
	if !ok {
		return nil, protocol.NotFound(req.CorrelationID, req.ToolID)
	}
	if desc.Runner == nil {
		return desc, protocol.Failure(req.CorrelationID, protocol.KindToolFailure,
			fmt.Sprintf("tool implementation unavailable: %s", desc.Locator), false)
	}

	req.Input = maputil.Merge(desc.Params, req.Input)

	if desc.InputSchema != nil {
		if err := desc.InputSchema.Validate(any(req.Input)); err != nil {
			return desc, protocol.Failure(req.CorrelationID, protocol.KindInvalidInput,
				fmt.Sprintf("input schema validation failed: %v", err), false)
		}
	}

	if !d.limiter.Allow(desc.ID, desc.RatePerMinute) {
		return desc, protocol.Failure(req.CorrelationID, protocol.KindCapacityExceeded,
			fmt.Sprintf("rate limit exceeded for tool %s", desc.ID), true)
	}

	cacheKey := ""
	if d.cache != nil {
		key, err := buildCacheKey(desc.ID, req.CorrelationID, providedID, req.Input, d.keyStrategy)
		if err != nil {
			d.logger.Warn("cache key build failed",
				zap.String("tool_id", desc.ID),
				zap.Error(err),
			)
		} else {
			cacheKey = key
		}
	}
	if cacheKey != "" {
		if cached, ok := d.cache.Get(cacheKey); ok {
			cached.CorrelationID = req.CorrelationID
			d.logger.Info("idempotent replay",
				zap.String("tool_id", desc.ID),
				zap.String("correlation_id", req.CorrelationID),
			)
			return desc, cached
		}
	}

	if !d.sem.TryAcquire(1) {
		return desc, protocol.Failure(req.CorrelationID, protocol.KindCapacityExceeded,
			"max concurrent executions reached", true)
	}
	defer d.sem.Release(1)

	timeout := timeutil.FromMillis(req.TimeoutMS, desc.Timeout)
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	outcome := d.engine.Execute(ctx, desc, *req, timeout)

	if cacheKey != "" && outcome.Status == protocol.StatusSuccess {
		d.cache.Set(cacheKey, outcome)
	}
	return desc, outcome
}

func (d *Dispatcher) record(desc *registry.Descriptor, req protocol.Request, outcome protocol.Outcome, source string, start time.Time) {
	if d.events == nil {
		return
	}
	event := &events.ExecutionEvent{
		ExecutionID:   uuid.New().String(),
		CorrelationID: outcome.CorrelationID,
		ToolID:        req.ToolID,
		Status:        outcome.Status,
		Source:        source,
		StartedAt:     start,
		ElapsedMS:     timeutil.Millis(time.Since(start)),
		InputPreview:  events.Preview(security.RedactInput(req.Input), d.previewMax),
		ResultPreview: events.Preview(outcome.Result, d.previewMax),
	}
	if desc != nil {
		event.Category = desc.Category
	}
	if outcome.Error != nil {
		event.ErrorKind = outcome.Error.Kind
		event.Retryable = outcome.Error.Retryable
	}
	d.events.Write(event)
}

package msgbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/dispatch"
	"github.com/droqlabs/toolnode/internal/events"
	"github.com/droqlabs/toolnode/internal/lifecycle"
	"github.com/droqlabs/toolnode/internal/protocol"
)

// Message headers understood by the gateway. Reply-Subject names a short
// subject under the stream prefix; when absent, outcomes go to the
// configured result subject.
const (
	headerReplySubject  = "Reply-Subject"
	headerCorrelationID = "Correlation-Id"
)

const (
	defaultWorkers     = 8
	defaultAckWait     = 90 * time.Second
	fetchMaxWait       = time.Second
	capacityRetryDelay = time.Second
)

// ConsumerOptions configures the request consumer.
type ConsumerOptions struct {
	// Subject is the short subject carrying execution requests.
	Subject string
	// Group enables competing-consumers mode: instances sharing a group
	// name split the messages between them. Empty means broadcast, where
	// every instance receives every message.
	Group string
	// ResultSubject is the short subject outcomes are published to.
	ResultSubject string
	// Workers bounds concurrent message processing.
	Workers int
	// AckWait is how long the server waits for an ack before redelivery;
	// it must exceed the longest execution deadline.
	AckWait time.Duration
}

// Consumer receives execution requests from the stream, runs them through
// the dispatcher with a bounded worker pool, and publishes outcomes.
// Processing is at-least-once: a message is acknowledged only after its
// outcome is published.
type Consumer struct {
	client      *Client
	dispatcher  *dispatch.Dispatcher
	coordinator *lifecycle.Coordinator
	opts        ConsumerOptions
	logger      *zap.Logger

	baseCtx  context.Context
	sub      *nats.Subscription
	msgCh    chan *nats.Msg
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer builds a consumer; Start must be called to begin receiving.
func NewConsumer(client *Client, dispatcher *dispatch.Dispatcher, coordinator *lifecycle.Coordinator, opts ConsumerOptions, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.AckWait <= 0 {
		opts.AckWait = defaultAckWait
	}
	return &Consumer{
		client:      client,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		opts:        opts,
		logger:      logger,
	}
}

// Start subscribes and launches the worker pool. ctx bounds execution of
// individual dispatches; it should stay live until shutdown completes.
func (c *Consumer) Start(ctx context.Context) error {
	c.baseCtx = ctx
	c.msgCh = make(chan *nats.Msg, c.opts.Workers)
	c.quit = make(chan struct{})

	if group := strings.TrimSpace(c.opts.Group); group != "" {
		durable := durableName(c.opts.Subject, group)
		sub, err := c.client.PullSubscribe(c.opts.Subject, durable, c.opts.AckWait)
		if err != nil {
			return err
		}
		c.sub = sub
		c.wg.Add(1)
		go c.fetchLoop()
		c.logger.Info("consuming in group mode",
			zap.String("subject", c.opts.Subject),
			zap.String("durable", durable),
		)
	} else {
		sub, err := c.client.Subscribe(c.opts.Subject, c.opts.AckWait, func(msg *nats.Msg) {
			select {
			case c.msgCh <- msg:
			default:
				// Workers are saturated; nak for redelivery.
				_ = msg.Nak()
			}
		})
		if err != nil {
			return err
		}
		c.sub = sub
		c.logger.Info("consuming in broadcast mode", zap.String("subject", c.opts.Subject))
	}

	for i := 0; i < c.opts.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	return nil
}

// Stop unsubscribes and waits for in-progress message handling to finish.
// Messages still queued locally are dropped unacknowledged so the server
// redelivers them.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
		if c.sub != nil {
			_ = c.sub.Unsubscribe()
		}
		c.wg.Wait()
		c.logger.Info("consumer stopped")
	})
}

func (c *Consumer) fetchLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		msgs, err := c.sub.Fetch(c.opts.Workers, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return
			}
			c.logger.Warn("fetch failed", zap.Error(err))
			select {
			case <-c.quit:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			select {
			case c.msgCh <- msg:
			case <-c.quit:
				return
			}
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case msg := <-c.msgCh:
			c.process(msg)
		}
	}
}

func (c *Consumer) process(msg *nats.Msg) {
	req, err := decodeRequest(msg.Data, msg.Header)
	if err != nil {
		c.logger.Warn("malformed request message",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		outcome := protocol.Failure(req.CorrelationID, protocol.KindInvalidInput,
			"malformed request payload: "+err.Error(), false)
		if pubErr := c.publishOutcome(msg, outcome); pubErr != nil {
			c.logger.Error("outcome publish failed", zap.Error(pubErr))
		}
		// Poison message: redelivery cannot fix it.
		_ = msg.Ack()
		return
	}

	if !c.coordinator.Accepting() {
		// Draining; nak so the message reaches an accepting instance.
		_ = msg.Nak()
		return
	}

	outcome := c.dispatcher.Handle(c.baseCtx, req, events.SourceAsync)

	if outcome.IsCapacity() {
		_ = msg.NakWithDelay(capacityRetryDelay)
		return
	}

	if err := c.publishOutcome(msg, outcome); err != nil {
		c.logger.Error("outcome publish failed",
			zap.String("correlation_id", outcome.CorrelationID),
			zap.Error(err),
		)
		// Left unacknowledged; ack-wait redelivery applies.
		return
	}
	_ = msg.Ack()
}

func (c *Consumer) publishOutcome(msg *nats.Msg, outcome protocol.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	headers := map[string]string{headerCorrelationID: outcome.CorrelationID}
	return c.client.Publish(resultSubjectFor(msg.Header, c.opts.ResultSubject), payload, headers)
}

// resultSubjectFor picks the outcome subject: an explicit Reply-Subject
// header wins over the configured default.
func resultSubjectFor(header nats.Header, fallback string) string {
	if subject := strings.TrimSpace(header.Get(headerReplySubject)); subject != "" {
		return subject
	}
	return fallback
}

// decodeRequest unmarshals a request payload and folds transport headers
// into the request metadata. NATS bookkeeping headers are skipped.
func decodeRequest(data []byte, header nats.Header) (protocol.Request, error) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		req.CorrelationID = header.Get(headerCorrelationID)
		return req, fmt.Errorf("decode request: %w", err)
	}

	if len(header) > 0 {
		metadata := req.Metadata
		if metadata == nil {
			metadata = make(map[string]string, len(header))
		}
		for key := range header {
			if strings.HasPrefix(key, "Nats-") {
				continue
			}
			metadata[key] = header.Get(key)
		}
		req.Metadata = metadata
	}
	if strings.TrimSpace(req.CorrelationID) == "" {
		req.CorrelationID = header.Get(headerCorrelationID)
	}
	return req, nil
}

// durableName derives the durable consumer name shared by a group, so
// every instance in the group binds to the same server-side consumer.
func durableName(subject, group string) string {
	return strings.ReplaceAll(subject+"-"+group, ".", "-")
}

// Package msgbus implements the asynchronous gateway over NATS
// JetStream: a durable stream for inbound execution requests and a
// publisher for outcome messages.
package msgbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	reconnectWait = 2 * time.Second
	streamMaxAge  = 24 * time.Hour
)

// Client wraps a NATS connection with JetStream enabled. All subjects are
// namespaced under the stream name, so callers pass short subject names
// and the client prefixes them.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *zap.Logger
}

// Connect dials the NATS server and initializes the JetStream context.
func Connect(url, stream string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("toolnode"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Client{conn: conn, js: js, stream: stream, logger: logger}, nil
}

// EnsureStream creates the request stream when it does not exist yet.
// Limits retention is required: it lets durable group consumers and
// per-instance broadcast subscribers coexist on the same stream.
func (c *Client) EnsureStream() error {
	_, err := c.js.StreamInfo(c.stream)
	if err == nil {
		c.logger.Debug("stream exists", zap.String("stream", c.stream))
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", c.stream, err)
	}

	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:      c.stream,
		Subjects:  []string{c.stream + ".>"},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    streamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", c.stream, err)
	}
	c.logger.Info("stream created", zap.String("stream", c.stream))
	return nil
}

// Publish sends payload to a short subject under the stream prefix.
func (c *Client) Publish(subject string, payload []byte, headers map[string]string) error {
	msg := nats.NewMsg(fullSubject(c.stream, subject))
	msg.Data = payload
	for key, value := range headers {
		msg.Header.Set(key, value)
	}
	if _, err := c.js.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Subject, err)
	}
	return nil
}

// PullSubscribe binds a durable pull consumer to a short subject.
func (c *Client) PullSubscribe(subject, durable string, ackWait time.Duration) (*nats.Subscription, error) {
	sub, err := c.js.PullSubscribe(fullSubject(c.stream, subject), durable,
		nats.AckExplicit(),
		nats.AckWait(ackWait),
	)
	if err != nil {
		return nil, fmt.Errorf("pull subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Subscribe attaches an ephemeral push consumer to a short subject,
// delivering only messages published after the subscription starts.
func (c *Client) Subscribe(subject string, ackWait time.Duration, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.Subscribe(fullSubject(c.stream, subject), handler,
		nats.AckExplicit(),
		nats.ManualAck(),
		nats.DeliverNew(),
		nats.AckWait(ackWait),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
	c.logger.Info("nats connection closed")
}

func fullSubject(stream, subject string) string {
	return stream + "." + subject
}

package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config stores environment-driven settings for the node.
type Config struct {
	// ManifestPath is the path to the YAML tool manifest.
	ManifestPath string `env:"MANIFEST_PATH" envDefault:"tools.yaml"`
	// LogLevel sets the logger level.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8005"`
	// NATSURL is the broker endpoint; empty disables the async gateway.
	NATSURL string `env:"NATS_URL"`
	// StreamName is the JetStream stream owning all node subjects.
	StreamName string `env:"STREAM_NAME" envDefault:"droq-stream"`
	// ExecSubject is the inbound execution subject (stream-prefixed).
	ExecSubject string `env:"EXEC_SUBJECT" envDefault:"execute"`
	// ResultSubject is the default outbound result subject.
	ResultSubject string `env:"RESULT_SUBJECT" envDefault:"results"`
	// QueueGroup enables load-balanced consumption when set; empty means
	// fan-out (every instance receives every message).
	QueueGroup string `env:"QUEUE_GROUP"`
	// ConsumerWorkers bounds concurrent message handling in the async
	// gateway.
	ConsumerWorkers int `env:"CONSUMER_WORKERS" envDefault:"8"`
	// MaxConcurrent bounds concurrent tool executions.
	MaxConcurrent int `env:"MAX_CONCURRENT" envDefault:"64"`
	// DefaultTimeout applies when a request carries no deadline and the
	// tool declares none.
	DefaultTimeout time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"30s"`
	// DrainTimeout bounds how long shutdown waits for in-flight work.
	DrainTimeout time.Duration `env:"DRAIN_TIMEOUT" envDefault:"25s"`
	// ShutdownTimeout controls graceful HTTP server shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// ClickHouseDSN enables the ClickHouse event writer; empty falls back
	// to the log writer.
	ClickHouseDSN string `env:"CLICKHOUSE_DSN"`
	// ResultPreviewMaxChars truncates input/result previews in events.
	ResultPreviewMaxChars int `env:"RESULT_PREVIEW_MAX_CHARS" envDefault:"500"`
	// Categories restricts the registry to the listed tool categories.
	Categories []string `env:"CATEGORIES" envSeparator:","`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}

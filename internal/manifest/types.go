package manifest

// Manifest is the top-level YAML tool manifest.
type Manifest struct {
	// Node describes node-wide settings.
	Node NodeConfig `yaml:"node"`
	// Tools lists all tool declarations.
	Tools []ToolSpec `yaml:"tools"`
}

// NodeConfig defines node-wide manifest settings.
type NodeConfig struct {
	// Name is the node service name.
	Name string `yaml:"name"`
	// Version is the node service version.
	Version string `yaml:"version"`
	// StartupHooks defines one-time commands executed on start.
	StartupHooks []HookConfig `yaml:"startup_hooks"`
	// Idempotency configures optional outcome replay caching.
	Idempotency IdempotencyConfig `yaml:"idempotency_cache"`
}

// ToolSpec declares a tool exposed by the node.
type ToolSpec struct {
	// ID is the unique tool identifier.
	ID string `yaml:"id"`
	// Title is the human-friendly tool title.
	Title string `yaml:"title"`
	// Description explains the tool for callers.
	Description string `yaml:"description"`
	// Category tags the tool for routing and filtering.
	Category string `yaml:"category"`
	// Locator is the dotted-path reference to the implementation.
	Locator string `yaml:"locator"`
	// Timeout is the per-tool execution timeout.
	Timeout string `yaml:"timeout"`
	// RatePerMinute limits executions per minute; zero means unlimited.
	RatePerMinute int `yaml:"rate_per_minute"`
	// Params holds static defaults merged under the request input.
	Params map[string]any `yaml:"params"`
	// InputSchema defines JSON Schema for tool input.
	InputSchema map[string]any `yaml:"input_schema"`
	// OutputSchema defines JSON Schema for tool output.
	OutputSchema map[string]any `yaml:"output_schema"`
	// Tags is an optional list of tags.
	Tags []string `yaml:"tags"`
}

// HookConfig defines a startup hook command.
type HookConfig struct {
	// Command is the startup command to run.
	Command string `yaml:"command"`
	// Args are optional arguments.
	Args []string `yaml:"args"`
	// Env adds environment variables for the hook.
	Env map[string]string `yaml:"env"`
	// Timeout controls hook execution duration.
	Timeout string `yaml:"timeout"`
}

// IdempotencyConfig configures outcome replay for redelivered requests.
type IdempotencyConfig struct {
	// Enabled toggles idempotency caching.
	Enabled bool `yaml:"enabled"`
	// TTL controls how long cached outcomes are kept.
	TTL string `yaml:"ttl"`
	// MaxEntries limits the cache size.
	MaxEntries int `yaml:"max_entries"`
	// KeyStrategy selects cache key strategy (correlation_id, arguments_hash, auto).
	KeyStrategy string `yaml:"key_strategy"`
}

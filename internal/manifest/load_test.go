package manifest

import (
	"strings"
	"testing"
)

const validManifest = `
node:
  name: test-node
  version: "1.0.0"
  idempotency_cache:
    enabled: true
tools:
  - id: echo
    title: Echo
    category: utility
    locator: builtin.echo
    timeout: 5s
    input_schema:
      type: object
      properties:
        x:
          type: integer
          maximum: 5
  - id: fetch
    locator: builtin.http_request
    category: network
    rate_per_minute: 30
    params:
      url: https://example.com/
      retries: 2
`

func TestLoad_Valid(t *testing.T) {
	m, err := Load([]byte(validManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Node.Name != "test-node" {
		t.Fatalf("expected node name test-node, got %s", m.Node.Name)
	}
	if len(m.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(m.Tools))
	}
	if m.Tools[0].ID != "echo" || m.Tools[1].ID != "fetch" {
		t.Fatalf("unexpected tool ids: %s, %s", m.Tools[0].ID, m.Tools[1].ID)
	}
	if m.Tools[1].RatePerMinute != 30 {
		t.Fatalf("expected rate 30, got %d", m.Tools[1].RatePerMinute)
	}
}

func TestLoad_NormalizesToJSONShapes(t *testing.T) {
	m, err := Load([]byte(validManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	props, ok := m.Tools[0].InputSchema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected string-keyed properties map, got %T", m.Tools[0].InputSchema["properties"])
	}
	x, ok := props["x"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", props["x"])
	}
	if max, ok := x["maximum"].(float64); !ok || max != 5 {
		t.Fatalf("expected maximum as float64 5, got %T %v", x["maximum"], x["maximum"])
	}
	if retries, ok := m.Tools[1].Params["retries"].(float64); !ok || retries != 2 {
		t.Fatalf("expected params numbers as float64, got %T", m.Tools[1].Params["retries"])
	}
}

func TestLoad_IdempotencyDefaults(t *testing.T) {
	m, err := Load([]byte(validManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idem := m.Node.Idempotency
	if idem.TTL != "1h" {
		t.Fatalf("expected default ttl 1h, got %s", idem.TTL)
	}
	if idem.MaxEntries != 1000 {
		t.Fatalf("expected default max entries 1000, got %d", idem.MaxEntries)
	}
	if idem.KeyStrategy != "auto" {
		t.Fatalf("expected default strategy auto, got %s", idem.KeyStrategy)
	}
}

func TestLoad_DefaultsCategory(t *testing.T) {
	doc := `
node:
  name: n
  version: "1"
tools:
  - id: t
    locator: builtin.echo
`
	m, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Tools[0].Category != "utility" {
		t.Fatalf("expected default category utility, got %s", m.Tools[0].Category)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	doc := `
node:
  name: n
  version: "1"
  mystery: true
tools: []
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing node name",
			doc:     "node:\n  version: \"1\"\ntools: []\n",
			wantErr: "node.name",
		},
		{
			name:    "missing node version",
			doc:     "node:\n  name: n\ntools: []\n",
			wantErr: "node.version",
		},
		{
			name:    "missing tool id",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - locator: builtin.echo\n",
			wantErr: "tools[0].id",
		},
		{
			name:    "duplicate tool id",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - id: a\n    locator: builtin.echo\n  - id: a\n    locator: builtin.echo\n",
			wantErr: "duplicate tool id",
		},
		{
			name:    "single-segment locator",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - id: a\n    locator: echo\n",
			wantErr: "not a dotted path",
		},
		{
			name:    "unknown category",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - id: a\n    locator: builtin.echo\n    category: weird\n",
			wantErr: "category",
		},
		{
			name:    "bad timeout",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - id: a\n    locator: builtin.echo\n    timeout: soon\n",
			wantErr: "timeout",
		},
		{
			name:    "negative rate",
			doc:     "node:\n  name: n\n  version: \"1\"\ntools:\n  - id: a\n    locator: builtin.echo\n    rate_per_minute: -1\n",
			wantErr: "rate_per_minute",
		},
		{
			name:    "bad idempotency strategy",
			doc:     "node:\n  name: n\n  version: \"1\"\n  idempotency_cache:\n    enabled: true\n    key_strategy: whatever\ntools: []\n",
			wantErr: "key_strategy",
		},
		{
			name:    "hook without command",
			doc:     "node:\n  name: n\n  version: \"1\"\n  startup_hooks:\n    - timeout: 5s\ntools: []\n",
			wantErr: "startup_hooks[0].command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tt.wantErr, err)
			}
		})
	}
}

package registry

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/manifest"
)

func loadTestManifest(t *testing.T, doc string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

func TestBuild_LookupReturnsRegisteredDescriptor(t *testing.T) {
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: echo
    locator: builtin.echo
    category: utility
  - id: fetch
    locator: builtin.http_request
    category: network
    params:
      url: https://example.com/
`)
	snap, err := Build(m, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Size() != 2 {
		t.Fatalf("expected 2 descriptors, got %d", snap.Size())
	}

	echo, ok := snap.Lookup("echo")
	if !ok || echo.ID != "echo" || echo.Locator != "builtin.echo" {
		t.Fatalf("echo lookup mismatch: %+v", echo)
	}
	fetch, ok := snap.Lookup("fetch")
	if !ok || fetch.ID != "fetch" || fetch.Category != "network" {
		t.Fatalf("fetch lookup mismatch: %+v", fetch)
	}
	if echo.Runner == nil || fetch.Runner == nil {
		t.Fatal("expected resolved runners for builtin locators")
	}
	if _, ok := snap.Lookup("missing"); ok {
		t.Fatal("unexpected hit for unknown id")
	}
}

func TestBuild_CompilesDeclaredSchemas(t *testing.T) {
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: echo
    locator: builtin.echo
    input_schema:
      type: object
      required: [x]
`)
	snap, err := Build(m, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	desc, _ := snap.Lookup("echo")
	if desc.InputSchema == nil {
		t.Fatal("expected compiled input schema")
	}
	if err := desc.InputSchema.Validate(map[string]any{}); err == nil {
		t.Fatal("expected schema to reject missing required property")
	}
	if err := desc.InputSchema.Validate(map[string]any{"x": float64(1)}); err != nil {
		t.Fatalf("expected schema to accept valid input: %v", err)
	}
}

func TestBuild_InvalidSchemaFails(t *testing.T) {
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: echo
    locator: builtin.echo
    input_schema:
      type: 123
`)
	if _, err := Build(m, BuildOptions{}); err == nil {
		t.Fatal("expected schema compile error")
	}
}

func TestBuild_UnknownLocatorKeptUnresolved(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: plugin
    locator: plugins.future_tool
`)
	snap, err := Build(m, BuildOptions{Logger: logger})
	if err != nil {
		t.Fatalf("unknown locators must not fail the build: %v", err)
	}

	desc, ok := snap.Lookup("plugin")
	if !ok {
		t.Fatal("expected descriptor to be registered")
	}
	if desc.Runner != nil {
		t.Fatal("expected nil runner for unknown locator")
	}

	reg := New(logger)
	reg.Swap(snap)
	issues := reg.Verify()
	if len(issues) != 1 {
		t.Fatalf("expected 1 verification issue, got %d", len(issues))
	}
	if issues[0].ToolID != "plugin" || issues[0].Locator != "plugins.future_tool" {
		t.Fatalf("unexpected issue: %+v", issues[0])
	}
}

func TestBuild_BrokenParamsFailBuild(t *testing.T) {
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: sh
    locator: builtin.shell
`)
	_, err := Build(m, BuildOptions{})
	if err == nil {
		t.Fatal("expected builder error for shell tool without command")
	}
	if !strings.Contains(err.Error(), "sh") {
		t.Fatalf("expected error naming the tool, got %q", err)
	}
}

func TestBuild_CategoryFilter(t *testing.T) {
	m := loadTestManifest(t, `
node:
  name: n
  version: "1"
tools:
  - id: echo
    locator: builtin.echo
    category: utility
  - id: fetch
    locator: builtin.http_request
    category: network
    params:
      url: https://example.com/
`)
	snap, err := Build(m, BuildOptions{Categories: []string{"network"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Size() != 1 {
		t.Fatalf("expected 1 descriptor after filtering, got %d", snap.Size())
	}
	if _, ok := snap.Lookup("echo"); ok {
		t.Fatal("filtered tool must not be registered")
	}
	if _, ok := snap.Lookup("fetch"); !ok {
		t.Fatal("expected network tool to survive the filter")
	}
}

func TestRegistry_SwapReplacesSnapshotWholesale(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	reg := New(logger)

	if reg.Loaded() {
		t.Fatal("fresh registry must not report loaded")
	}
	if _, ok := reg.Lookup("a"); ok {
		t.Fatal("lookup on empty registry must miss")
	}

	reg.Swap(NewSnapshot("n", "1", &Descriptor{ID: "a"}))
	if !reg.Loaded() {
		t.Fatal("expected loaded after swap")
	}
	if _, ok := reg.Lookup("a"); !ok {
		t.Fatal("expected a to resolve")
	}

	reg.Swap(NewSnapshot("n", "2", &Descriptor{ID: "b"}))
	if _, ok := reg.Lookup("a"); ok {
		t.Fatal("old snapshot must be fully replaced")
	}
	if _, ok := reg.Lookup("b"); !ok {
		t.Fatal("expected b to resolve after swap")
	}
	if reg.Current().Version != "2" {
		t.Fatalf("expected version 2, got %s", reg.Current().Version)
	}
}

func TestSnapshot_DescriptorsSorted(t *testing.T) {
	snap := NewSnapshot("n", "1",
		&Descriptor{ID: "zeta"},
		&Descriptor{ID: "alpha"},
		&Descriptor{ID: "mid"},
	)
	descs := snap.Descriptors()
	if len(descs) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descs))
	}
	if descs[0].ID != "alpha" || descs[1].ID != "mid" || descs[2].ID != "zeta" {
		t.Fatalf("expected sorted ids, got %s %s %s", descs[0].ID, descs[1].ID, descs[2].ID)
	}
}

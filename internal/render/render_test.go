package render

import (
	"strings"
	"testing"
)

func TestRenderBytes_ExpandsEnv(t *testing.T) {
	t.Setenv("RENDER_TEST_NAME", "node-7")

	out, err := RenderBytes("test", []byte(`name: {{ env "RENDER_TEST_NAME" }}`))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "name: node-7" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderBytes_EnvOrFallback(t *testing.T) {
	t.Setenv("RENDER_TEST_SET", "from-env")

	out, err := RenderBytes("test", []byte(`a: {{ envOr "RENDER_TEST_SET" "dflt" }}, b: {{ envOr "RENDER_TEST_UNSET_XYZ" "dflt" }}`))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "a: from-env, b: dflt" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderBytes_MissingEnvNamesAll(t *testing.T) {
	_, err := RenderBytes("test", []byte(`{{ env "RENDER_MISSING_B" }}{{ env "RENDER_MISSING_A" }}`))
	if err == nil {
		t.Fatal("expected error for unset env vars")
	}
	msg := err.Error()
	if !strings.Contains(msg, "RENDER_MISSING_A") || !strings.Contains(msg, "RENDER_MISSING_B") {
		t.Fatalf("expected both names in error, got %q", msg)
	}
	// Names are sorted for stable error output.
	if strings.Index(msg, "RENDER_MISSING_A") > strings.Index(msg, "RENDER_MISSING_B") {
		t.Fatalf("expected sorted names, got %q", msg)
	}
}

func TestRenderBytes_ParseError(t *testing.T) {
	_, err := RenderBytes("test", []byte(`{{ env `))
	if err == nil || !strings.Contains(err.Error(), "parse template") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestRenderBytes_StringHelpers(t *testing.T) {
	out, err := RenderBytes("test", []byte(`{{ lower "ABC" }}-{{ upper "x" }}-{{ replace "a.b.c" "." "-" }}`))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "abc-X-a-b-c" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderFile_MissingFile(t *testing.T) {
	_, err := RenderFile("/nonexistent/manifest.yaml")
	if err == nil || !strings.Contains(err.Error(), "read manifest") {
		t.Fatalf("expected read error, got %v", err)
	}
}

package executil

import (
	"context"
	"strings"
	"testing"
)

func TestRenderTemplate_ArgLookup(t *testing.T) {
	data := TemplateData{
		Input:  map[string]any{"name": "world"},
		ToolID: "greet",
	}

	out, err := RenderTemplate(`hello {{ arg "name" }} from {{ .ToolID }}`, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "hello world from greet" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplate_MissingArgRendersNoValue(t *testing.T) {
	out, err := RenderTemplate(`{{ arg "absent" }}`, TemplateData{Input: map[string]any{}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<no value>" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate(`{{ arg `, TemplateData{})
	if err == nil || !strings.Contains(err.Error(), "template parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestRunCommand_CapturesOutputAndExitCode(t *testing.T) {
	out, code, err := RunCommand(context.Background(), `printf '%s' ok`, nil, nil, TemplateData{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 {
		t.Fatalf("unexpected exit code %d", code)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	_, code, err := RunCommand(context.Background(), "exit 7", nil, nil, TemplateData{})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if code != 7 {
		t.Fatalf("unexpected exit code %d", code)
	}
}

func TestRunCommand_ExplicitArgsBypassShell(t *testing.T) {
	data := TemplateData{Input: map[string]any{"word": "plain"}}
	out, code, err := RunCommand(context.Background(), "echo", []string{"-n", `{{ arg "word" }}`}, nil, data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 || out != "plain" {
		t.Fatalf("unexpected result code=%d out=%q", code, out)
	}
}

func TestRunCommand_EnvPassthrough(t *testing.T) {
	out, _, err := RunCommand(context.Background(), "echo -n $GREETING", nil,
		map[string]string{"GREETING": `hi {{ arg "who" }}`},
		TemplateData{Input: map[string]any{"who": "ops"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "hi ops" {
		t.Fatalf("unexpected output %q", out)
	}
}

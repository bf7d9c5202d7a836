package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResolve_KnownLocators(t *testing.T) {
	for _, locator := range []string{"builtin.echo", "builtin.shell", "builtin.http_request"} {
		if !Known(locator) {
			t.Fatalf("expected %s to be known", locator)
		}
	}
	if Known("builtin.nope") {
		t.Fatal("unexpected builder for builtin.nope")
	}
}

func TestResolve_UnknownLocator(t *testing.T) {
	_, err := Resolve(Spec{ID: "x", Locator: "plugins.some_tool"})
	if !errors.Is(err, ErrUnknownLocator) {
		t.Fatalf("expected ErrUnknownLocator, got %v", err)
	}
}

func TestEcho_ReturnsCopiedInput(t *testing.T) {
	tool, err := Resolve(Spec{ID: "echo", Locator: "builtin.echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := map[string]any{"x": float64(1), "s": "hi"}
	out, err := tool.Invoke(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["x"] != float64(1) || out["s"] != "hi" {
		t.Fatalf("unexpected output: %v", out)
	}

	out["x"] = float64(2)
	if input["x"] != float64(1) {
		t.Fatal("echo must not alias the caller's input map")
	}
}

func TestShell_RequiresCommand(t *testing.T) {
	_, err := Resolve(Spec{ID: "sh", Locator: "builtin.shell"})
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if !strings.Contains(err.Error(), "command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShell_RejectsBadArgsType(t *testing.T) {
	_, err := Resolve(Spec{ID: "sh", Locator: "builtin.shell", Params: map[string]any{
		"command": "echo",
		"args":    "not-a-list",
	}})
	if err == nil {
		t.Fatal("expected error for non-list args")
	}
}

func TestShell_RunsCommand(t *testing.T) {
	tool, err := Resolve(Spec{ID: "sh", Locator: "builtin.shell", Params: map[string]any{
		"command": `echo hello {{ arg "name" }}`,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := tool.Invoke(context.Background(), map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["output"] != "hello world" {
		t.Fatalf("expected hello world, got %q", out["output"])
	}
	if out["exit_code"] != 0 {
		t.Fatalf("expected exit code 0, got %v", out["exit_code"])
	}
}

func TestShell_FailureIsPermanent(t *testing.T) {
	tool, err := Resolve(Spec{ID: "sh", Locator: "builtin.shell", Params: map[string]any{
		"command": "exit 3",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, invokeErr := tool.Invoke(context.Background(), nil)
	var toolErr *Error
	if !errors.As(invokeErr, &toolErr) {
		t.Fatalf("expected a tool error, got %v", invokeErr)
	}
	if toolErr.Retryable {
		t.Fatal("command failures must not be retryable")
	}
}

func TestHTTPRequest_RequiresURL(t *testing.T) {
	_, err := Resolve(Spec{ID: "h", Locator: "builtin.http_request"})
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestHTTPRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tool, err := Resolve(Spec{ID: "h", Locator: "builtin.http_request", Params: map[string]any{
		"url": server.URL,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status_code"] != 200 {
		t.Fatalf("expected status 200, got %v", out["status_code"])
	}
	body, ok := out["body"].(map[string]any)
	if !ok || body["ok"] != true {
		t.Fatalf("expected parsed JSON body, got %v", out["body"])
	}
}

func TestHTTPRequest_UpstreamErrorsClassified(t *testing.T) {
	status := http.StatusServiceUnavailable
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	tool, err := Resolve(Spec{ID: "h", Locator: "builtin.http_request", Params: map[string]any{
		"url": server.URL,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, invokeErr := tool.Invoke(context.Background(), nil)
	var toolErr *Error
	if !errors.As(invokeErr, &toolErr) {
		t.Fatalf("expected tool error, got %v", invokeErr)
	}
	if !toolErr.Retryable {
		t.Fatal("5xx answers must be retryable")
	}

	status = http.StatusNotFound
	_, invokeErr = tool.Invoke(context.Background(), nil)
	if !errors.As(invokeErr, &toolErr) {
		t.Fatalf("expected tool error, got %v", invokeErr)
	}
	if toolErr.Retryable {
		t.Fatal("4xx answers must not be retryable")
	}
}

func TestHTTPRequest_TemplatedURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	tool, err := Resolve(Spec{ID: "h", Locator: "builtin.http_request", Params: map[string]any{
		"url": server.URL + `/items/{{ arg "id" }}`,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tool.Invoke(context.Background(), map[string]any{"id": "42"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/items/42" {
		t.Fatalf("expected /items/42, got %s", gotPath)
	}
}

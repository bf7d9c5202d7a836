package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/droqlabs/toolnode/internal/executil"
)

// shellTool executes a templated command. The command, args, and env come
// from manifest params; request input is available to the templates.
type shellTool struct {
	id      string
	command string
	args    []string
	env     map[string]string
}

func newShell(spec Spec) (Tool, error) {
	command, _ := spec.Params["command"].(string)
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("params.command is required")
	}
	args, err := stringSlice(spec.Params["args"])
	if err != nil {
		return nil, fmt.Errorf("params.args: %w", err)
	}
	env, err := stringMap(spec.Params["env"])
	if err != nil {
		return nil, fmt.Errorf("params.env: %w", err)
	}
	return &shellTool{id: spec.ID, command: command, args: args, env: env}, nil
}

func (t *shellTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	output, exitCode, err := executil.RunCommand(ctx, t.command, t.args, t.env, executil.TemplateData{
		Input:  input,
		ToolID: t.id,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := err.Error()
		if trimmed := strings.TrimSpace(output); trimmed != "" {
			msg = msg + ": " + trimmed
		}
		return nil, Permanentf("command failed: %s", msg)
	}
	return map[string]any{
		"output":    strings.TrimSpace(output),
		"exit_code": exitCode,
	}, nil
}

func stringSlice(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of strings, got %T", value)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringMap(value any) (map[string]string, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("must be a string map, got %T", value)
	}
	out := make(map[string]string, len(items))
	for key, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("key %s must be a string, got %T", key, item)
		}
		out[key] = s
	}
	return out, nil
}

package executil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/template"
)

// maxCapturedOutput caps combined stdout/stderr so a runaway tool cannot
// exhaust memory.
const maxCapturedOutput = 1 << 20

// TemplateData defines the available fields in command templates.
type TemplateData struct {
	// Input is the merged tool input.
	Input map[string]any
	// ToolID is the executing tool identifier.
	ToolID string
}

// RenderTemplate renders a string template with TemplateData.
func RenderTemplate(value string, data TemplateData) (string, error) {
	tmpl, err := template.New("value").Funcs(template.FuncMap{
		"arg": func(name string) any {
			if data.Input == nil {
				return nil
			}
			return data.Input[name]
		},
	}).Parse(value)
	if err != nil {
		return "", fmt.Errorf("template parse: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template render: %w", err)
	}
	return buf.String(), nil
}

// BuildCommand builds an exec.Cmd with rendered command, args and env.
// A command without args runs through bash -c so pipelines work.
func BuildCommand(ctx context.Context, command string, args []string, env map[string]string, data TemplateData) (*exec.Cmd, error) {
	renderedCommand, err := RenderTemplate(command, data)
	if err != nil {
		return nil, err
	}

	renderedArgs := make([]string, 0, len(args))
	for _, arg := range args {
		rendered, err := RenderTemplate(arg, data)
		if err != nil {
			return nil, err
		}
		renderedArgs = append(renderedArgs, rendered)
	}

	var cmd *exec.Cmd
	if len(renderedArgs) == 0 {
		cmd = exec.CommandContext(ctx, "bash", "-c", renderedCommand)
	} else {
		cmd = exec.CommandContext(ctx, renderedCommand, renderedArgs...)
	}

	cmd.Env = os.Environ()
	for key, value := range env {
		rendered, err := RenderTemplate(value, data)
		if err != nil {
			return nil, err
		}
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, rendered))
	}

	return cmd, nil
}

// RunCommand executes a command and returns output, exit code, and error.
func RunCommand(ctx context.Context, command string, args []string, env map[string]string, data TemplateData) (string, int, error) {
	cmd, err := BuildCommand(ctx, command, args, env, data)
	if err != nil {
		return "", -1, err
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err = cmd.Run()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	captured := output.String()
	if len(captured) > maxCapturedOutput {
		captured = captured[:maxCapturedOutput]
	}
	return captured, exitCode, err
}

// Package render expands environment references in manifest templates
// before they are parsed, so one manifest file can serve multiple
// deployments.
package render

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
)

// envTracker collects environment variables referenced by a template that
// were not set, so the error can name all of them at once.
type envTracker struct {
	missing map[string]struct{}
}

func (t *envTracker) markMissing(key string) {
	if t.missing == nil {
		t.missing = map[string]struct{}{}
	}
	t.missing[key] = struct{}{}
}

func (t *envTracker) names() []string {
	out := make([]string, 0, len(t.missing))
	for key := range t.missing {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// RenderFile loads and renders a manifest template file.
func RenderFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return RenderBytes(path, raw)
}

// RenderBytes renders a manifest template from raw bytes. Rendering fails
// when a template references an environment variable that is not set,
// rather than silently producing an empty value.
func RenderBytes(name string, raw []byte) ([]byte, error) {
	tracker := &envTracker{}
	templateName := name
	if strings.TrimSpace(templateName) == "" {
		templateName = "manifest"
	}
	tmpl, err := template.New(templateName).Funcs(funcMap(tracker)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{}); err != nil {
		if len(tracker.missing) > 0 {
			return nil, fmt.Errorf("missing env vars: %s", strings.Join(tracker.names(), ", "))
		}
		return nil, fmt.Errorf("render template: %w", err)
	}

	if len(tracker.missing) > 0 {
		return nil, fmt.Errorf("missing env vars: %s", strings.Join(tracker.names(), ", "))
	}

	return buf.Bytes(), nil
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/droqlabs/toolnode/internal/executil"
)

// maxResponseBody caps upstream response bodies read into memory.
const maxResponseBody = 1 << 20

// httpTool calls an external HTTP endpoint. The URL is a template over the
// request input; an optional "body" input value is sent as JSON. Network
// faults and 5xx/429 answers are declared transient so callers may retry.
type httpTool struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

func newHTTPRequest(spec Spec) (Tool, error) {
	url, _ := spec.Params["url"].(string)
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("params.url is required")
	}
	method, _ := spec.Params["method"].(string)
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	headers, err := stringMap(spec.Params["headers"])
	if err != nil {
		return nil, fmt.Errorf("params.headers: %w", err)
	}
	return &httpTool{
		id:      spec.ID,
		url:     url,
		method:  method,
		headers: headers,
		client:  &http.Client{},
	}, nil
}

func (t *httpTool) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	url, err := executil.RenderTemplate(t.url, executil.TemplateData{Input: input, ToolID: t.id})
	if err != nil {
		return nil, Permanentf("render url: %v", err)
	}

	var reqBody io.Reader
	if body, ok := input["body"]; ok && t.method != http.MethodGet {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, Permanentf("encode body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, t.method, url, reqBody)
	if err != nil {
		return nil, Permanentf("build request: %v", err)
	}
	if reqBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for key, value := range t.headers {
		request.Header.Set(key, value)
	}

	resp, err := t.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transientf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	trimmed := strings.TrimSpace(string(data))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, Transientf("upstream status %d: %s", resp.StatusCode, trimmed)
	}
	if resp.StatusCode >= 400 {
		return nil, Permanentf("upstream status %d: %s", resp.StatusCode, trimmed)
	}

	var parsed any = trimmed
	var decoded any
	if len(data) > 0 && json.Unmarshal(data, &decoded) == nil {
		parsed = decoded
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        parsed,
	}, nil
}

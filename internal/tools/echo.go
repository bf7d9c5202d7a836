package tools

import "context"

// echoTool returns its input unchanged. It anchors round-trip testing and
// gives pipelines a no-op stage.
type echoTool struct{}

func newEcho(Spec) (Tool, error) {
	return echoTool{}, nil
}

func (echoTool) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out, nil
}

package startup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/executil"
	"github.com/droqlabs/toolnode/internal/manifest"
)

// Run executes manifest startup hooks sequentially. A failed hook aborts
// node startup.
func Run(ctx context.Context, hooks []manifest.HookConfig, logger *zap.Logger) error {
	for idx, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			continue
		}
		hookCtx := ctx
		var cancel context.CancelFunc
		if strings.TrimSpace(hook.Timeout) != "" {
			timeout, err := time.ParseDuration(hook.Timeout)
			if err != nil {
				return fmt.Errorf("startup hook %d: invalid timeout: %w", idx, err)
			}
			hookCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		if logger != nil {
			logger.Info("running startup hook",
				zap.Int("index", idx),
				zap.String("command", hook.Command),
			)
		}

		output, _, err := executil.RunCommand(hookCtx, hook.Command, hook.Args, hook.Env, executil.TemplateData{})
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if logger != nil && strings.TrimSpace(output) != "" {
				logger.Error("startup hook failed",
					zap.Int("index", idx),
					zap.String("output", strings.TrimSpace(output)),
				)
			}
			return fmt.Errorf("startup hook %d failed: %w", idx, err)
		}
		if logger != nil && strings.TrimSpace(output) != "" {
			logger.Info("startup hook output",
				zap.Int("index", idx),
				zap.String("output", strings.TrimSpace(output)),
			)
		}
	}
	return nil
}

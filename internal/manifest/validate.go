package manifest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/droqlabs/toolnode/internal/constants"
)

// locatorPattern is the syntactic shape of an implementation locator: a
// dotted path with at least two segments. Matching it does not guarantee
// the locator resolves; registry verification covers that.
var locatorPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)

// Validate applies defaults and verifies required fields.
func Validate(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if m.Node.Name == "" {
		return fmt.Errorf("node.name is required")
	}
	if m.Node.Version == "" {
		return fmt.Errorf("node.version is required")
	}

	if m.Node.Idempotency.Enabled {
		if m.Node.Idempotency.TTL == "" {
			m.Node.Idempotency.TTL = "1h"
		}
		if m.Node.Idempotency.MaxEntries == 0 {
			m.Node.Idempotency.MaxEntries = 1000
		}
		if m.Node.Idempotency.MaxEntries < 0 {
			return fmt.Errorf("node.idempotency_cache.max_entries must be >= 0")
		}
		if _, err := time.ParseDuration(m.Node.Idempotency.TTL); err != nil {
			return fmt.Errorf("node.idempotency_cache.ttl is invalid: %w", err)
		}
		if m.Node.Idempotency.KeyStrategy == "" {
			m.Node.Idempotency.KeyStrategy = constants.CacheKeyStrategyAuto
		}
		switch strings.ToLower(strings.TrimSpace(m.Node.Idempotency.KeyStrategy)) {
		case constants.CacheKeyStrategyAuto, constants.CacheKeyStrategyCorrelationID, constants.CacheKeyStrategyArgumentsHash:
		default:
			return fmt.Errorf("node.idempotency_cache.key_strategy must be auto, correlation_id, or arguments_hash")
		}
	}

	for i, hook := range m.Node.StartupHooks {
		if strings.TrimSpace(hook.Command) == "" {
			return fmt.Errorf("node.startup_hooks[%d].command is required", i)
		}
		if strings.TrimSpace(hook.Timeout) != "" {
			if _, err := time.ParseDuration(hook.Timeout); err != nil {
				return fmt.Errorf("node.startup_hooks[%d].timeout is invalid: %w", i, err)
			}
		}
	}

	toolIDs := map[string]struct{}{}
	for i := range m.Tools {
		tool := &m.Tools[i]
		if strings.TrimSpace(tool.ID) == "" {
			return fmt.Errorf("tools[%d].id is required", i)
		}
		if _, exists := toolIDs[tool.ID]; exists {
			return fmt.Errorf("duplicate tool id: %s", tool.ID)
		}
		toolIDs[tool.ID] = struct{}{}

		if strings.TrimSpace(tool.Locator) == "" {
			return fmt.Errorf("tools[%d].locator is required", i)
		}
		if !locatorPattern.MatchString(tool.Locator) {
			return fmt.Errorf("tools[%d].locator %q is not a dotted path", i, tool.Locator)
		}

		if tool.Category == "" {
			tool.Category = constants.CategoryUtility
		}
		if !constants.ValidCategory(tool.Category) {
			return fmt.Errorf("tools[%d].category %q is unknown", i, tool.Category)
		}

		if strings.TrimSpace(tool.Timeout) != "" {
			if _, err := time.ParseDuration(tool.Timeout); err != nil {
				return fmt.Errorf("tools[%d].timeout is invalid: %w", i, err)
			}
		}
		if tool.RatePerMinute < 0 {
			return fmt.Errorf("tools[%d].rate_per_minute must be >= 0", i)
		}
	}

	return nil
}

package render

import (
	"os"
	"strings"
	"text/template"
)

// funcMap returns the helpers available inside manifest templates.
func funcMap(tracker *envTracker) template.FuncMap {
	return template.FuncMap{
		"env": func(key string) (string, error) {
			value, ok := os.LookupEnv(key)
			if !ok {
				if tracker != nil {
					tracker.markMissing(key)
				}
				return "", nil
			}
			return value, nil
		},
		"envOr": func(key, def string) string {
			if value, ok := os.LookupEnv(key); ok {
				return value
			}
			return def
		},
		"default": func(def, value string) string {
			if value == "" {
				return def
			}
			return value
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"trimPrefix": strings.TrimPrefix,
		"trimSuffix": strings.TrimSuffix,
		"replace":    strings.ReplaceAll,
	}
}

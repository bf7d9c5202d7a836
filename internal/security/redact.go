package security

import "strings"

var sensitiveSubstrings = []string{
	"token",
	"password",
	"authorization",
	"apikey",
	"api_key",
	"access_key",
	"private_key",
	"credentials",
	"auth",
	"passwd",
	"key",
	"sig",
	"signature",
	"cookie",
	"session",
	"jwt",
	"bearer",
	"credential",
	"pwd",
	"passphrase",
	"secret_value",
}

var allowList = map[string]struct{}{
	"secret_name": {},
}

// RedactInput returns a copy of a tool input with sensitive values masked.
// Nested objects are walked; other value types are kept as-is.
func RedactInput(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	redacted := make(map[string]any, len(values))
	for key, value := range values {
		if isSensitiveKey(key) {
			redacted[key] = maskValue(value)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			redacted[key] = RedactInput(nested)
			continue
		}
		redacted[key] = value
	}
	return redacted
}

// maskValue keeps the first and last four characters of long secrets so
// operators can match a masked value against a known credential.
func maskValue(value any) any {
	s, ok := value.(string)
	if !ok {
		return "***"
	}
	if len(s) > 12 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "***"
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if _, ok := allowList[lower]; ok {
		return false
	}
	if strings.Contains(lower, "secret") && strings.Contains(lower, "name") {
		return false
	}
	for _, part := range sensitiveSubstrings {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

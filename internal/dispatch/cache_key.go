package dispatch

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/droqlabs/toolnode/internal/constants"
)

// buildCacheKey derives the replay cache key for one request. The auto
// strategy keys on the caller-provided correlation id when present and
// falls back to an input hash, so retries of the same delivery replay
// while distinct requests never collide.
func buildCacheKey(toolID, correlationID string, providedID bool, input map[string]any, strategy string) (string, error) {
	keyStrategy := strings.ToLower(strings.TrimSpace(strategy))
	if keyStrategy == "" {
		keyStrategy = constants.CacheKeyStrategyAuto
	}

	var key string
	switch keyStrategy {
	case constants.CacheKeyStrategyCorrelationID:
		key = correlationID
	case constants.CacheKeyStrategyArgumentsHash:
		hash, err := hashInput(input)
		if err != nil {
			return "", err
		}
		key = hash
	case constants.CacheKeyStrategyAuto:
		if providedID && correlationID != "" {
			key = correlationID
		} else {
			hash, err := hashInput(input)
			if err != nil {
				return "", err
			}
			key = hash
		}
	default:
		return "", fmt.Errorf("unsupported cache key strategy: %s", strategy)
	}
	if strings.TrimSpace(key) == "" {
		return "", nil
	}
	return fmt.Sprintf("%s:%s", toolID, key), nil
}

func hashInput(input map[string]any) (string, error) {
	data, err := canonicalJSON(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON encodes a value with deterministic map key ordering so
// equal inputs always hash to the same key.
func canonicalJSON(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return []byte(strconv.Quote(v)), nil
	case json.Number:
		return []byte(v.String()), nil
	case bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return json.Marshal(v)
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := canonicalJSON(item)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		return canonicalMapJSON(v)
	default:
		return json.Marshal(v)
	}
}

func canonicalMapJSON(value map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		data, err := canonicalJSON(value[key])
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

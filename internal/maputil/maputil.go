package maputil

import "sync"

// Pop removes key from map under lock and returns the previous value if present.
func Pop[K comparable, V any](mu *sync.Mutex, items map[K]V, key K) (V, bool) {
	mu.Lock()
	defer mu.Unlock()

	value, ok := items[key]
	if ok {
		delete(items, key)
	}
	return value, ok
}

// Merge overlays runtime values on top of defaults without mutating either
// map. A runtime value that is nil or an empty string does not clobber a
// populated default; tools rely on manifest defaults surviving sparse
// caller input.
func Merge(defaults, runtime map[string]any) map[string]any {
	if len(defaults) == 0 && len(runtime) == 0 {
		return map[string]any{}
	}
	merged := make(map[string]any, len(defaults)+len(runtime))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range runtime {
		if isEmpty(value) {
			if existing, ok := merged[key]; ok && !isEmpty(existing) {
				continue
			}
		}
		merged[key] = value
	}
	return merged
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

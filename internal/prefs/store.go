// Package prefs is the device-local preference store shared with the keyboard
// process. Values are flat: bool, float64 and string. Composite records are
// stored as JSON-encoded strings.
package prefs

import "fmt"

// Reader is the read side of a Store.
type Reader interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (any, bool)
}

// Store is the interface for persisting preferences.
type Store interface {
	Reader

	// Set stores value under key. Implementations may debounce the write to
	// durable storage, but Get observes the new value immediately.
	Set(key string, value any) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys returns every stored key in sorted order.
	Keys() []string

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending changes.
	Flush() error
}

// normalize maps the accepted Go value types onto the three stored kinds.
func normalize(value any) (any, error) {
	switch v := value.(type) {
	case bool, string, float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("prefs: unsupported value type %T", value)
	}
}

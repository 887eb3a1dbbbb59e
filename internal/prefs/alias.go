package prefs

import "fmt"

// FlutterPrefix is the prefix the keyboard's legacy preference layer adds to
// every key it writes.
const FlutterPrefix = "flutter."

// Alias is one physical key holding a logical setting. Scale converts the
// canonical value to the stored one (stored = canonical * Scale); zero means 1.
type Alias struct {
	Key   string
	Scale float64
}

// Key returns an unscaled alias for key.
func Key(key string) Alias { return Alias{Key: key} }

// Flutter returns an unscaled alias for the flutter.-prefixed form of key.
func Flutter(key string) Alias { return Alias{Key: FlutterPrefix + key} }

// Scaled returns a copy of a with the given storage scale.
func (a Alias) Scaled(scale float64) Alias {
	a.Scale = scale
	return a
}

func (a Alias) decode(v any) any {
	if f, ok := v.(float64); ok && a.Scale != 0 && a.Scale != 1 {
		return f / a.Scale
	}
	return v
}

func (a Alias) encode(v any) any {
	if a.Scale == 0 || a.Scale == 1 {
		return v
	}
	switch n := v.(type) {
	case float64:
		return n * a.Scale
	case int:
		return float64(n) * a.Scale
	}
	return v
}

// Both returns the flutter.-prefixed alias followed by the bare alias, the
// read order used by most settings.
func Both(key string) []Alias {
	return []Alias{Flutter(key), Key(key)}
}

// ReadFirst returns the first present alias value (in canonical scale) that
// accept approves. A nil accept approves everything.
func ReadFirst(r Reader, aliases []Alias, accept func(any) bool) (any, bool) {
	for _, a := range aliases {
		raw, ok := r.Get(a.Key)
		if !ok || raw == nil {
			continue
		}
		v := a.decode(raw)
		if accept == nil || accept(v) {
			return v, true
		}
	}
	return nil, false
}

// WriteAll writes v to every alias in order. It stops at the first failure.
func WriteAll(s Store, aliases []Alias, v any) error {
	for _, a := range aliases {
		if err := s.Set(a.Key, a.encode(v)); err != nil {
			return fmt.Errorf("write %s: %w", a.Key, err)
		}
	}
	return nil
}

// RemoveAll removes every alias.
func RemoveAll(s Store, aliases []Alias) error {
	for _, a := range aliases {
		if err := s.Remove(a.Key); err != nil {
			return fmt.Errorf("remove %s: %w", a.Key, err)
		}
	}
	return nil
}

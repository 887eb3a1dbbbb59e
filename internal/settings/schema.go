package settings

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/glyphkey/kbcompanion/internal/prefs"
)

// Schema is the set of settings owned by one feature area (one screen).
type Schema struct {
	Area   string
	Fields []Field

	// Derive applies settings that follow from others, e.g. turning the glide
	// trail off when glide typing is off. It runs after every edit.
	Derive func(Values)
}

// Field returns the field definition for key.
func (s *Schema) Field(key string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Keys returns the logical keys of the schema in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Defaults returns the default value of every setting, derived rules applied.
func (s *Schema) Defaults() Values {
	v := make(Values, len(s.Fields))
	for i := range s.Fields {
		v[s.Fields[i].Key] = s.Fields[i].DefaultValue()
	}
	s.derive(v)
	return v
}

func (s *Schema) derive(v Values) {
	if s.Derive != nil {
		s.Derive(v)
	}
}

// Load resolves every setting of the schema from r. For each field the first
// alias holding a value of the right type wins; the value is then validated.
// Missing or unusable values resolve to the default. Load never fails.
func Load(r prefs.Reader, s *Schema) Values {
	v := make(Values, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		raw, ok := prefs.ReadFirst(r, f.Aliases, f.accepts)
		if !ok {
			v[f.Key] = f.DefaultValue()
			continue
		}
		v[f.Key] = f.Validate(raw, nil)
	}
	s.derive(v)
	return v
}

// Validate validates every key of candidate against the schema, using prev for
// fallbacks, and applies derived rules. Keys unknown to the schema are dropped.
func (s *Schema) Validate(candidate, prev Values) Values {
	out := make(Values, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		c, ok := candidate[f.Key]
		if !ok {
			c = prev[f.Key]
		}
		out[f.Key] = f.Validate(c, prev[f.Key])
	}
	s.derive(out)
	return out
}

// Diff returns the keys whose values differ between a and b, sorted.
func Diff(a, b Values) []string {
	var keys []string
	seen := make(map[string]bool)
	for k, va := range a {
		seen[k] = true
		if !reflect.DeepEqual(va, b[k]) {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Check verifies that the schema is well formed: unique keys, at least one
// alias per field, valid defaults.
func (s *Schema) Check() error {
	seen := make(map[string]bool)
	for i := range s.Fields {
		f := &s.Fields[i]
		if seen[f.Key] {
			return fmt.Errorf("settings: %s: duplicate key %q", s.Area, f.Key)
		}
		seen[f.Key] = true
		if len(f.Aliases) == 0 {
			return fmt.Errorf("settings: %s.%s: no aliases", s.Area, f.Key)
		}
		v, ok := f.coerce(f.Default)
		if !ok || !f.valid(v) {
			return fmt.Errorf("settings: %s.%s: invalid default %v", s.Area, f.Key, f.Default)
		}
	}
	return nil
}

// Package settings resolves typed settings from the preference store and
// validates edits. Nothing here writes; persistence belongs to the sync engine.
package settings

import (
	"encoding/json"
	"math"

	"github.com/glyphkey/kbcompanion/internal/prefs"
)

// Kind is the value type of a setting.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	String
	Enum
	StringList
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Enum:
		return "enum"
	case StringList:
		return "string_list"
	}
	return "unknown"
}

// Field describes one logical setting: its physical aliases in read order,
// its type, its default and its valid range or choices.
type Field struct {
	Key     string
	Aliases []prefs.Alias
	Kind    Kind
	Default any

	// Min and Max bound numeric kinds when Max > Min.
	Min, Max float64

	// Allowed lists the valid values of an Enum.
	Allowed []string
}

func (f *Field) bounded() bool { return f.Max > f.Min }

// coerce converts v to the field's in-memory representation.
func (f *Field) coerce(v any) (any, bool) {
	switch f.Kind {
	case Bool:
		b, ok := v.(bool)
		return b, ok
	case Int:
		n, ok := number(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		return int(math.Round(n)), true
	case Float:
		n, ok := number(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		return n, true
	case String, Enum:
		s, ok := v.(string)
		return s, ok
	case StringList:
		return stringList(v)
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// stringList accepts a []string, a []any of strings, or the JSON-encoded
// string form used in the preference store.
func stringList(v any) (any, bool) {
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		var out []string
		if err := json.Unmarshal([]byte(l), &out); err != nil {
			return nil, false
		}
		if out == nil {
			out = []string{}
		}
		return out, true
	}
	return nil, false
}

// valid reports whether an already-coerced value satisfies the field's
// choices. Numeric range is handled by clamping, not rejection.
func (f *Field) valid(v any) bool {
	if f.Kind != Enum {
		return true
	}
	s := v.(string)
	for _, a := range f.Allowed {
		if a == s {
			return true
		}
	}
	return false
}

func (f *Field) clamp(v any) any {
	if !f.bounded() {
		return v
	}
	switch n := v.(type) {
	case int:
		lo, hi := int(math.Ceil(f.Min)), int(math.Floor(f.Max))
		if n < lo {
			return lo
		}
		if n > hi {
			return hi
		}
		return n
	case float64:
		if n < f.Min {
			return f.Min
		}
		if n > f.Max {
			return f.Max
		}
		return n
	}
	return v
}

// Validate resolves candidate to a valid value. Unknown enum values and values
// of the wrong type fall back to prev when prev is valid, otherwise to the
// default. Numbers are clamped to [Min, Max]. Validate never fails and is
// idempotent.
func (f *Field) Validate(candidate, prev any) any {
	if v, ok := f.coerce(candidate); ok && f.valid(v) {
		return f.clamp(v)
	}
	if prev != nil {
		if v, ok := f.coerce(prev); ok && f.valid(v) {
			return f.clamp(v)
		}
	}
	return f.DefaultValue()
}

// DefaultValue returns a fresh copy of the field default.
func (f *Field) DefaultValue() any {
	v, ok := f.coerce(f.Default)
	if !ok {
		return f.Default
	}
	return f.clamp(v)
}

// StoredValue converts an in-memory value to its preference-store form.
func (f *Field) StoredValue(v any) any {
	if f.Kind == StringList {
		data, err := json.Marshal(v)
		if err != nil {
			return "[]"
		}
		return string(data)
	}
	return v
}

// accepts reports whether a raw stored value has the field's type.
func (f *Field) accepts(v any) bool {
	_, ok := f.coerce(v)
	return ok
}

package settings

// Values holds the current value of every setting in one feature area,
// keyed by logical setting key.
type Values map[string]any

// Clone returns a copy of v. String lists are copied too.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		if l, ok := val.([]string); ok {
			cp := make([]string, len(l))
			copy(cp, l)
			val = cp
		}
		out[k] = val
	}
	return out
}

func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

func (v Values) Strings(key string) []string {
	l, _ := v[key].([]string)
	out := make([]string, len(l))
	copy(out, l)
	return out
}

package extract

import (
	"maps"
	"slices"
	"time"
)

// Fields is an extracted field set keyed by the names in constants.FieldNames.
// Values are string, int64 (amount) or time.Time (dates) once normalized.
type Fields map[string]any

// Present reports whether name holds a non-empty value.
func (f Fields) Present(name string) bool {
	v, ok := f[name]
	return ok && !isEmpty(v)
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// String returns the string value of name, or "".
func (f Fields) String(name string) string {
	s, _ := f[name].(string)
	return s
}

// Date returns the calendar date under name.
func (f Fields) Date(name string) (time.Time, bool) {
	t, ok := f[name].(time.Time)
	return t, ok && !t.IsZero()
}

// Amount returns the integer amount under name.
func (f Fields) Amount(name string) (int64, bool) {
	n, ok := f[name].(int64)
	return n, ok
}

// isEmpty mirrors the truthiness the pipeline gates on: nil, "", numeric zero,
// false and the zero time are empty.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case bool:
		return !t
	case time.Time:
		return t.IsZero()
	}
	return false
}

package extract

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

const isoDate = "2006-01-02"

var dateLayouts = []string{"2006-1-2", "2006/1/2", "2006.1.2", "20060102"}

var reNonDigit = regexp.MustCompile(`[^0-9]`)

// ParseDate parses YYYY-MM-DD, YYYY/MM/DD, YYYY.MM.DD or YYYYMMDD into a UTC date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseAmount keeps only the digits of s. ok is false when none remain or the value overflows.
func ParseAmount(s string) (int64, bool) {
	digits := reNonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	var n int64
	for _, c := range digits {
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

// NeedsLLM reports whether any required field is absent or empty.
func NeedsLLM(f Fields) bool {
	for _, k := range constants.RequiredFields {
		if !f.Present(k) {
			return true
		}
	}
	return false
}

// MergeFields prefers rule values; an LLM value only fills a key that is absent, nil or "".
func MergeFields(rule, llm Fields) Fields {
	merged := rule.Clone()
	for k, v := range llm {
		cur, ok := merged[k]
		if !ok || cur == nil || cur == "" {
			merged[k] = v
		}
	}
	return merged
}

// NormalizeFields coerces date strings to dates and amounts to int64.
// Values that cannot be coerced are dropped; other keys pass through.
func NormalizeFields(f Fields) Fields {
	out := f.Clone()
	for _, k := range constants.DateFields {
		v, ok := out[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			if t.IsZero() {
				delete(out, k)
			}
		case string:
			if d, ok := ParseDate(t); ok {
				out[k] = d
			} else {
				delete(out, k)
			}
		default:
			delete(out, k)
		}
	}

	if v, ok := out[constants.FieldAmount]; ok {
		switch t := v.(type) {
		case int64:
		case int:
			out[constants.FieldAmount] = int64(t)
		case float64:
			if math.IsNaN(t) || t < 0 || t >= math.MaxInt64 {
				delete(out, constants.FieldAmount)
			} else {
				out[constants.FieldAmount] = int64(math.Round(t))
			}
		case string:
			if n, ok := ParseAmount(t); ok {
				out[constants.FieldAmount] = n
			} else {
				delete(out, constants.FieldAmount)
			}
		default:
			delete(out, constants.FieldAmount)
		}
	}
	return out
}

// SerializeFields converts dates to ISO-8601 strings so the set can be stored as JSON.
func SerializeFields(f Fields) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if t, ok := v.(time.Time); ok {
			out[k] = t.Format(isoDate)
			continue
		}
		out[k] = v
	}
	return out
}

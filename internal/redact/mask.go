package redact

import "strings"

const maskChar = '*'

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// DigitsOnly strips every non-ASCII-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskDigitsKeepLast replaces every digit with '*' except the last keep digits.
// Non-digit runes keep their position. When s has keep digits or fewer, all of them are masked.
func MaskDigitsKeepLast(s string, keep int) string {
	total := len(DigitsOnly(s))
	if total == 0 {
		return s
	}
	visibleFrom := total - keep
	if keep <= 0 || total <= keep {
		visibleFrom = total
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for _, r := range s {
		if !isDigit(r) {
			b.WriteRune(r)
			continue
		}
		if i < visibleFrom {
			b.WriteRune(maskChar)
		} else {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}

// MaskDigitsAll replaces every digit with '*'.
func MaskDigitsAll(s string) string {
	return MaskDigitsKeepLast(s, 0)
}

func maskEmailLocal(local string) string {
	if len([]rune(local)) <= 1 {
		return string(maskChar)
	}
	return local[:1] + "***"
}

// containsAny reports whether line contains one of keywords, ignoring case.
func containsAny(line string, keywords []string) bool {
	lowered := strings.ToLower(line)
	for _, k := range keywords {
		if strings.Contains(lowered, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

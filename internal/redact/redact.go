// Package redact masks card numbers, account and approval numbers, national ID
// numbers, phone numbers and e-mail addresses in free text and nested values.
//
// Every entry point is total: malformed input comes back unchanged, never as a panic.
package redact

import "strings"

// Text masks sensitive substrings in text, line by line.
// When strict is set, unlabeled 13-19 digit runs that pass the Luhn check are masked too.
func Text(text string, strict bool) (out string) {
	if text == "" {
		return text
	}
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()

	lines := splitLines(text)
	for i, line := range lines {
		lines[i] = Line(line, strict)
	}
	return strings.Join(lines, "\n")
}

// Line applies the rules to a single line until the output stops changing, so
// Line(Line(s)) == Line(s). A masked value can expose a new labeled tail (an
// e-mail's first character after an approval label), which the next pass masks.
func Line(line string, strict bool) string {
	// every changing pass masks at least one more character
	for range len(line) + 1 {
		next := linePass(line, strict)
		if next == line {
			break
		}
		line = next
	}
	return line
}

func linePass(line string, strict bool) string {
	for _, r := range rules {
		if r.applies(line, strict) {
			line = r.apply(line)
		}
	}
	return line
}

// splitLines splits on \n, \r\n and \r. A trailing line break does not produce an empty line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// ParseStrict interprets a REDACTION_STRICT style flag. ok is false when raw is empty.
func ParseStrict(raw string) (strict, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

// Engine carries the configured strict default for callers that do not choose per call.
type Engine struct {
	Strict bool
}

// New returns an Engine with the given strict default.
func New(strict bool) Engine { return Engine{Strict: strict} }

func (e Engine) Text(text string) string { return Text(text, e.Strict) }

func (e Engine) Structure(v any, skip KeySet) any { return InStructure(v, skip, e.Strict) }

func (e Engine) DictKeys(m map[string]any, keys, skip KeySet) map[string]any {
	return DictKeys(m, keys, skip, e.Strict)
}

// Response is the double pass applied to every outgoing payload.
func (e Engine) Response(m map[string]any) map[string]any { return Response(m, e.Strict) }

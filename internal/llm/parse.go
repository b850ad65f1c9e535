package llm

import (
	"encoding/json"
	"strings"
)

// ParseJSONObject decodes the JSON object spanning the first '{' and the last
// '}' of text, which tolerates code fences and chatter around the answer.
// Anything unparseable yields nil.
func ParseJSONObject(text string) map[string]any {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &m); err != nil {
		return nil
	}
	return m
}

package redact

// SensitiveKeys are always structurally redacted in outgoing payloads,
// whether or not their content matches a pattern.
var SensitiveKeys = Keys(
	"raw_text",
	"parsed_fields",
	"evidence",
	"ocr_text",
	"llm_prompt",
	"llm_response",
	"error",
	"error_detail",
	"logs",
)

// Response runs the key-targeted pass over SensitiveKeys and then the whole-structure pass.
// Values under skip keys (encoded binary payloads) are copied through untouched.
func Response(m map[string]any, strict bool, skip ...string) map[string]any {
	if m == nil {
		return nil
	}
	var skipSet KeySet
	if len(skip) > 0 {
		skipSet = Keys(skip...)
	}
	out := DictKeys(m, SensitiveKeys, skipSet, strict)
	if redacted, ok := InStructure(out, skipSet, strict).(map[string]any); ok {
		return redacted
	}
	return out
}

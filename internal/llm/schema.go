package llm

import "github.com/joseph-ayodele/warranty-tracker/constants"

const isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

// BuildFieldJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every field is optional; unknown keys are rejected.
func BuildFieldJSONSchema() map[string]any {
	props := map[string]any{
		constants.FieldTitle:           map[string]any{"type": "string", "minLength": 1, "maxLength": 255},
		constants.FieldStore:           map[string]any{"type": "string", "minLength": 1},
		constants.FieldOrderID:         map[string]any{"type": "string", "minLength": 1},
		constants.FieldASContact:       map[string]any{"type": "string", "minLength": 1},
		constants.FieldProductCategory: map[string]any{"type": "string", "minLength": 1},
		constants.FieldAmount: map[string]any{
			"type":    []string{"integer", "number", "string"},
			"minimum": 0,
			"pattern": `^[0-9][0-9,]*(\.[0-9]+)?\s*(원|KRW)?$`,
		},
	}
	for _, f := range constants.DateFields {
		props[f] = map[string]any{"type": "string", "pattern": isoDatePattern}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

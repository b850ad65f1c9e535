package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

// SanitizeFields prepares a decoded model answer for schema validation:
//   - renames known synonyms (price -> amount, date -> purchase_date, ...)
//   - drops null, blank and "null" values
//   - trims strings and removes unknown keys
//   - turns whole floats into integers for amount
//
// It returns the names of dropped or renamed keys for logging.
func SanitizeFields(m map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(m))
	var notes []string

	synonyms := map[string]string{
		"price":         constants.FieldAmount,
		"total":         constants.FieldAmount,
		"date":          constants.FieldPurchaseDate,
		"merchant":      constants.FieldStore,
		"merchant_name": constants.FieldStore,
		"product_name":  constants.FieldTitle,
		"category":      constants.FieldProductCategory,
	}

	for k, v := range m {
		key := strings.TrimSpace(k)
		if to, ok := synonyms[key]; ok {
			if _, exists := m[to]; exists {
				notes = append(notes, key+"(shadowed)")
				continue
			}
			notes = append(notes, key+"->"+to)
			key = to
		}
		if !constants.IsFieldName(key) {
			notes = append(notes, key+"(unknown)")
			continue
		}
		switch t := v.(type) {
		case nil:
			notes = append(notes, key+"(null)")
			continue
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				notes = append(notes, key+"(empty)")
				continue
			}
			v = s
		case float64:
			if key == constants.FieldAmount && t == float64(int64(t)) {
				v = int64(t)
			}
		case bool, map[string]any, []any:
			notes = append(notes, key+"(type)")
			continue
		}
		out[key] = v
	}
	slices.Sort(notes)
	return out, notes
}

// DropInvalid removes every key whose value alone does not satisfy schema, so
// one malformed optional does not discard the rest of the answer.
func DropInvalid(schema *jsonschema.Schema, m map[string]any) (map[string]any, []string, error) {
	out := make(map[string]any, len(m))
	var dropped []string
	for k, v := range m {
		probe, err := roundTrip(map[string]any{k: v})
		if err != nil {
			return nil, nil, err
		}
		if schema.Validate(probe) != nil {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	slices.Sort(dropped)
	return out, dropped, nil
}

// roundTrip re-decodes v so numeric types match what the validator expects.
func roundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	return out, nil
}

package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{name: "plain", in: `{"title":"TV"}`, want: map[string]any{"title": "TV"}},
		{name: "fenced", in: "```json\n{\"store\":\"마트\"}\n```", want: map[string]any{"store": "마트"}},
		{name: "chatter", in: `결과입니다: {"amount": 1000} 감사합니다`, want: map[string]any{"amount": 1000.0}},
		{name: "empty", in: "", want: nil},
		{name: "no object", in: "모르겠어요", want: nil},
		{name: "reversed braces", in: "} {", want: nil},
		{name: "broken", in: `{"title": }`, want: nil},
		{name: "array", in: `[{"title":"x"}]`, want: map[string]any{"title": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseJSONObject(tt.in))
		})
	}
}

func TestSanitizeFields(t *testing.T) {
	got, notes := SanitizeFields(map[string]any{
		"title":           "  냉장고 ",
		"store":           nil,
		"order_id":        "null",
		"as_contact":      "",
		"amount":          12000.0,
		"merchant":        "전자랜드",
		"confidence":      0.9,
		"refund_deadline": true,
	})
	assert.Equal(t, map[string]any{
		"title":  "냉장고",
		"amount": int64(12000),
		"store":  "전자랜드",
	}, got)
	assert.Contains(t, notes, "confidence(unknown)")
	assert.Contains(t, notes, "merchant->store")
	assert.Contains(t, notes, "refund_deadline(type)")
}

func TestSanitizeFieldsKeepsCanonicalOverSynonym(t *testing.T) {
	got, notes := SanitizeFields(map[string]any{"price": 1.0, "amount": "3,000"})
	assert.Equal(t, map[string]any{"amount": "3,000"}, got)
	assert.Equal(t, []string{"price(shadowed)"}, notes)
}

func TestDropInvalid(t *testing.T) {
	schema, err := CompileSchema(BuildFieldJSONSchema())
	require.NoError(t, err)

	got, dropped, err := DropInvalid(schema, map[string]any{
		"title":             "냉장고",
		"purchase_date":     "2024/01/10",
		"warranty_end_date": "2026-01-10",
		"amount":            "12,000원",
		"refund_deadline":   "다음 주",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title":             "냉장고",
		"warranty_end_date": "2026-01-10",
		"amount":            "12,000원",
	}, got)
	assert.Equal(t, []string{"purchase_date", "refund_deadline"}, dropped)

	got, dropped, err = DropInvalid(schema, map[string]any{"amount": int64(-5)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"amount"}, dropped)
}

func TestCompileSchema(t *testing.T) {
	schema, err := CompileSchema(BuildFieldJSONSchema())
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(map[string]any{"title": "TV", "amount": float64(1000)}))
	assert.Error(t, schema.Validate(map[string]any{"extra": "x"}))
	assert.Error(t, schema.Validate(map[string]any{"purchase_date": "10/01/2024"}))
}

func TestBuildUserPrompt(t *testing.T) {
	p := BuildUserPrompt("상호: 마트")
	for _, f := range constants.FieldNames {
		assert.Contains(t, p, f)
	}
	assert.Contains(t, p, "YYYY-MM-DD")
	assert.True(t, strings.HasSuffix(p, "근거:\n상호: 마트"))

	long := BuildUserPrompt(strings.Repeat("가", maxPromptRunes+10))
	assert.True(t, strings.HasSuffix(long, "…(truncated)"))
	assert.NotContains(t, BuildUserPrompt("  "), "근거")
}

func TestMockExtractor(t *testing.T) {
	f := MockExtractor{}.ExtractFields(context.Background(), "anything")
	assert.Equal(t, "LLM-보완-제품", f.String(constants.FieldTitle))
	assert.Equal(t, "LLM-상점", f.String(constants.FieldStore))
}

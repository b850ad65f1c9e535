// Package llm holds the provider-neutral parts of LLM field extraction: the
// prompt, the output schema, response parsing and sanitizing, and a mock.
package llm

import (
	"context"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/internal/extract"
)

// MockExtractor returns a fixed partial answer. It is used when no LLM endpoint
// is configured.
type MockExtractor struct{}

func (MockExtractor) ExtractFields(ctx context.Context, _ string) extract.Fields {
	if ctx.Err() != nil {
		return extract.Fields{}
	}
	return extract.Fields{
		constants.FieldTitle: "LLM-보완-제품",
		constants.FieldStore: "LLM-상점",
	}
}

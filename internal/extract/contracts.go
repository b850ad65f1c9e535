package extract

import "context"

// TextExtractor is Stage 1: file -> text.
// pages holds 1-based page numbers for PDFs; nil means the extractor's default.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string, pages []int) (string, error)
}

// FieldExtractor is the optional Stage 2 fallback: text -> partial fields.
// Implementations never fail; any transport or parse problem yields an empty Fields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, rawText string) Fields
}

// FieldExtractorFunc adapts a function to FieldExtractor.
type FieldExtractorFunc func(ctx context.Context, rawText string) Fields

func (f FieldExtractorFunc) ExtractFields(ctx context.Context, rawText string) Fields {
	return f(ctx, rawText)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, path string, pages []int) (string, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, path string, pages []int) (string, error) {
	return f(ctx, path, pages)
}

package ocr

import "context"

// MockText is what MockExtractor returns for every document.
const MockText = "상호: 테스트마트\n구매일: 2024-01-10\n금액: 12,000원\n주문번호: A-1004"

// MockExtractor stands in for a real OCR provider in local runs and tests.
type MockExtractor struct{}

func (MockExtractor) ExtractText(ctx context.Context, _ string, _ []int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return MockText, nil
}

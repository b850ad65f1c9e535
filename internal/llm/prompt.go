package llm

import (
	"strings"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

// SystemPrompt frames the model as a field extractor.
const SystemPrompt = "너는 OCR 텍스트에서 필드를 추출하는 도우미야."

// maxPromptRunes bounds how much OCR text goes into one request.
const maxPromptRunes = 6000

// BuildUserPrompt asks for exactly the known field names and appends the OCR
// text as evidence.
func BuildUserPrompt(rawText string) string {
	var b strings.Builder
	b.WriteString("다음 OCR 텍스트에서 제품 정보를 JSON으로 추출해줘.\n")
	b.WriteString("필드는 ")
	b.WriteString(strings.Join(constants.FieldNames, ", "))
	b.WriteString(" 만 포함해.\n")
	b.WriteString("날짜는 YYYY-MM-DD 형식, amount는 숫자만 포함해.\n")
	b.WriteString("없으면 null로 반환해.\n")

	text := strings.TrimSpace(rawText)
	if text == "" {
		return b.String()
	}
	b.WriteString("\n근거:\n")
	if r := []rune(text); len(r) > maxPromptRunes {
		b.WriteString(string(r[:maxPromptRunes]))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

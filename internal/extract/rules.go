package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

const maxTitleRunes = 255

var (
	storeLabels = []string{"상호", "매장", "판매처"}
	titleLabels = []string{"상품명", "제품명", "품목"}

	reLabelSep  = regexp.MustCompile(`[:：]`)
	reDateToken = regexp.MustCompile(`(\d{4}[./-]\d{2}[./-]\d{2}|\d{8})`)
	reAmount    = regexp.MustCompile(`([0-9,]+)\s*원`)
	reOrderID   = regexp.MustCompile(`(?i)(주문번호|Order ID)[:\s]*([A-Za-z0-9-]+)`)
	reContact   = regexp.MustCompile(`(\d{2,3}-\d{3,4}-\d{4})`)
	reRefund    = regexp.MustCompile(`환불[가-힣]*[\s:]*([0-9./-]{8,10})`)
	reWarranty  = regexp.MustCompile(`보증[가-힣]*[\s:]*([0-9./-]{8,10})`)
)

// ExtractWithRules pulls known fields out of raw OCR text with fixed patterns.
// Only fields that were found are set.
func ExtractWithRules(raw string) Fields {
	fields := Fields{}
	lines := nonEmptyLines(raw)

	if v, ok := labeledValue(lines, storeLabels); ok {
		fields[constants.FieldStore] = v
	}
	if v, ok := labeledValue(lines, titleLabels); ok {
		fields[constants.FieldTitle] = v
	}

	if d, ok := firstDate(reDateToken, raw); ok {
		fields[constants.FieldPurchaseDate] = d
	}
	for _, m := range reAmount.FindAllStringSubmatch(raw, -1) {
		if n, ok := ParseAmount(m[1]); ok {
			fields[constants.FieldAmount] = n
			break
		}
	}
	if m := reOrderID.FindStringSubmatch(raw); m != nil {
		fields[constants.FieldOrderID] = m[2]
	}
	if m := reContact.FindStringSubmatch(raw); m != nil {
		fields[constants.FieldASContact] = m[1]
	}
	if d, ok := firstDate(reRefund, raw); ok {
		fields[constants.FieldRefundDeadline] = d
	}
	if d, ok := firstDate(reWarranty, raw); ok {
		fields[constants.FieldWarrantyEndDate] = d
	}

	if _, ok := fields[constants.FieldTitle]; !ok && len(lines) > 0 {
		fields[constants.FieldTitle] = truncateRunes(lines[0], maxTitleRunes)
	}
	return fields
}

// labeledValue returns the text after the first colon of the first line mentioning a label.
func labeledValue(lines, labels []string) (string, bool) {
	for _, line := range lines {
		if !containsAnyOf(line, labels) {
			continue
		}
		parts := reLabelSep.Split(line, 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1]), true
		}
	}
	return "", false
}

func firstDate(re *regexp.Regexp, raw string) (time.Time, bool) {
	for _, m := range re.FindAllStringSubmatch(raw, -1) {
		if d, ok := ParseDate(m[1]); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func nonEmptyLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func containsAnyOf(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

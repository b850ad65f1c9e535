package redact

import (
	"regexp"
	"strings"
)

var (
	cardKeywords = []string{"카드", "신용", "체크", "결제", "CARD", "카드번호"}
	rrnKeywords  = []string{"주민번호", "주민등록", "주민", "RRN"}
)

var (
	reApproval  = regexp.MustCompile(`(?i)(승인번호|원거래번호|거래번호|가맹점번호|가맹번호|단말기ID|단말기|TID|MID)(\s*[:：]?\s*)([0-9*\- ]{4,})`)
	reAccount   = regexp.MustCompile(`(?i)(계좌번호|계좌|ACCOUNT)(\s*[:：]?\s*)([0-9*\- ]{6,})`)
	reCardLoose = regexp.MustCompile(`\b(?:\d[ -]?){11,18}\d\b`)
	reCardFour  = regexp.MustCompile(`\b\d{4}[ -]\d{4}[ -]\d{4}[ -]\d{4}\b`)
	reEmail     = regexp.MustCompile(`\b([A-Za-z0-9._%+-]{1,64})@([A-Za-z0-9.-]+\.[A-Za-z]{2,})\b`)
	rePhone     = regexp.MustCompile(`\b(01[016789]|0\d{1,2})[- .]?\d{3,4}[- .]?\d{4}\b`)
	reRRN       = regexp.MustCompile(`\b(\d{6})-?(\d{7})\b`)
)

// rule is one masking step applied to a single line. Rules run in slice order.
type rule struct {
	name string
	re   *regexp.Regexp
	// keywords gate the rule: the line must contain one of them (case-insensitive).
	keywords []string
	// strictOnly rules run only in strict mode.
	strictOnly bool
	// mask receives the full match followed by its submatches.
	mask func(groups []string) string
}

var rules = []rule{
	{name: "approval", re: reApproval, mask: maskLabeledNumber},
	{name: "account", re: reAccount, mask: maskLabeledNumber},
	{name: "card_loose", re: reCardLoose, keywords: cardKeywords, mask: maskCard},
	{name: "card_grouped", re: reCardFour, mask: maskCard},
	{name: "card_luhn", re: reCardLoose, strictOnly: true, mask: maskLuhnCandidate},
	{name: "email", re: reEmail, mask: maskEmail},
	{name: "phone", re: rePhone, mask: maskCard},
	{name: "rrn", re: reRRN, keywords: rrnKeywords, mask: maskRRN},
}

func (r rule) applies(line string, strict bool) bool {
	if r.strictOnly && !strict {
		return false
	}
	return r.keywords == nil || containsAny(line, r.keywords)
}

func (r rule) apply(line string) string {
	return replaceAllSubmatchFunc(r.re, line, r.mask)
}

func maskLabeledNumber(g []string) string {
	return g[1] + g[2] + MaskDigitsAll(g[3])
}

// maskCard keeps the last 4 digits; phone numbers use the same strategy.
func maskCard(g []string) string {
	return MaskDigitsKeepLast(g[0], 4)
}

func maskLuhnCandidate(g []string) string {
	raw := g[0]
	if strings.ContainsRune(raw, maskChar) {
		return raw
	}
	digits := DigitsOnly(raw)
	if n := len(digits); n < 13 || n > 19 || !Luhn(digits) {
		return raw
	}
	return MaskDigitsKeepLast(raw, 4)
}

func maskEmail(g []string) string {
	return maskEmailLocal(g[1]) + "@" + g[2]
}

func maskRRN(g []string) string {
	return g[1] + "-*******"
}

func replaceAllSubmatchFunc(re *regexp.Regexp, s string, fn func([]string) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

package redact

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		strict  bool
		want    string
		absent  []string
		present []string
		suffix  string
	}{
		{
			name: "grouped card behind keyword keeps last four",
			in:   "카드번호: 1234-5678-9012-3456",
			want: "카드번호: ****-****-****-3456",
		},
		{
			name: "grouped card without keyword is still masked",
			in:   "1234 5678 9012 3456",
			want: "**** **** **** 3456",
		},
		{
			name:   "mobile number keeps last four",
			in:     "전화: 01012345678",
			absent: []string{"01012345678"},
			suffix: "5678",
		},
		{
			name:   "area code and spaced mobile",
			in:     "문의: 02-123-4567 / 010 1234 5678",
			absent: []string{"02-123-4567", "010 1234 5678"},
			want:   "문의: **-***-4567 / *** **** 5678",
		},
		{
			name: "email keeps first character and domain",
			in:   "문의: user@example.com",
			want: "문의: u***@example.com",
		},
		{
			name: "single character local part",
			in:   "a@example.com",
			want: "*@example.com",
		},
		{
			name: "approval number fully masked",
			in:   "승인번호: 99887766",
			want: "승인번호: ********",
		},
		{
			name:   "transaction and terminal numbers",
			in:     "거래번호: 2023-9988 단말기ID: 123456",
			absent: []string{"2023-9988", "123456"},
			want:   "거래번호: ****-**** 단말기ID: ******",
		},
		{
			name: "english terminal label is case-insensitive",
			in:   "tid 12345678",
			want: "tid ********",
		},
		{
			name: "account number fully masked",
			in:   "계좌번호: 110-123-456789",
			want: "계좌번호: ***-***-******",
		},
		{
			name: "national id behind keyword",
			in:   "주민번호: 900101-1234567",
			want: "주민번호: 900101-*******",
		},
		{
			name: "national id without keyword is left alone",
			in:   "번호 900101-1234567",
			want: "번호 900101-1234567",
		},
		{
			name: "barcode amount and date are not masked",
			in:   "바코드 8801045570068 금액 1,600 날짜 2014-01-21",
			want: "바코드 8801045570068 금액 1,600 날짜 2014-01-21",
		},
		{
			name:   "strict masks luhn-valid run behind card keyword",
			in:     "결제내역 4111111111111111",
			strict: true,
			absent: []string{"4111111111111111"},
			suffix: "1111",
		},
		{
			name:   "strict masks unlabeled luhn-valid run",
			in:     "ref 4111111111111111",
			strict: true,
			want:   "ref ************1111",
		},
		{
			name:   "strict leaves luhn-invalid run",
			in:     "코드 4111111111111112",
			strict: true,
			want:   "코드 4111111111111112",
		},
		{
			name: "non-strict leaves unlabeled luhn-valid run",
			in:   "ref 4111111111111111",
			want: "ref 4111111111111111",
		},
		{
			name: "card keyword only gates its own line",
			in:   "카드결제\n주문 12345678901234",
			want: "카드결제\n주문 12345678901234",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.in, tt.strict)
			if tt.want != "" || tt.in == "" {
				assert.Equal(t, tt.want, got)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, got, s)
			}
			for _, s := range tt.present {
				assert.Contains(t, got, s)
			}
			if tt.suffix != "" {
				assert.True(t, strings.HasSuffix(got, tt.suffix), "got %q", got)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	samples := []string{
		"카드번호: 1234-5678-9012-3456",
		"결제 카드 4111 1111 1111 1111 승인번호: 30012345",
		"전화: 010-1234-5678 팩스 02 123 4567",
		"문의: user.name+tag@example.co.kr, b@x.io",
		"거래번호: 2023-9988 단말기ID: 123456 TID: 7788",
		"계좌 110-123-456789 ACCOUNT: 3333-01-1234567",
		"주민등록번호 9001011234567 / RRN 900101-1234567",
		"ref 4111111111111111 and 5500005555555559",
		"바코드 8801045570068 금액 1,600 날짜 2014-01-21",
		"line one\r\nline two\n\nline four\n",
		"TID 7abc@x.com",
		"승인번호 9shop@mail.co.kr",
		"계좌 123456 1user@bank.kr",
	}
	for _, strict := range []bool{false, true} {
		for _, s := range samples {
			once := Text(s, strict)
			assert.Equal(t, once, Text(once, strict), "strict=%v input=%q", strict, s)
		}
	}
}

func TestTextIdempotent_Random(t *testing.T) {
	tokens := []string{
		"TID ", "MID: ", "승인번호 ", "단말기ID:", "계좌 ", "ACCOUNT ", "카드 ", "주민 ", "RRN ",
		"0", "1", "7", "9", "010", "1234", "5678", "900101", "-", " ", "*", ":",
		"@", "x.com", "mail.co.kr", "abc", "u", ".", "_", "상호",
	}
	rng := rand.New(rand.NewPCG(42, 1024))
	for i := 0; i < 20000; i++ {
		var b strings.Builder
		for n := 1 + rng.IntN(12); n > 0; n-- {
			b.WriteString(tokens[rng.IntN(len(tokens))])
		}
		in := b.String()
		for _, strict := range []bool{false, true} {
			once := Text(in, strict)
			if !assert.Equal(t, once, Text(once, strict), "strict=%v input=%q", strict, in) {
				return
			}
		}
	}
}

func TestLine_MasksEmailTailAfterLabel(t *testing.T) {
	assert.Equal(t, "TID ****@x.com", Text("TID 7abc@x.com", false))
	assert.Equal(t, "승인번호 ****@mail.co.kr", Text("승인번호 9shop@mail.co.kr", true))
}

func TestTextLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Text("a\r\nb\rc\n", false))
}

func TestLuhn(t *testing.T) {
	assert.True(t, Luhn("4111111111111111"))
	assert.True(t, Luhn("5500005555555559"))
	assert.False(t, Luhn("4111111111111112"))
	assert.False(t, Luhn(""))
	assert.False(t, Luhn("4111-1111"))
}

func TestMaskDigitsKeepLast(t *testing.T) {
	assert.Equal(t, "***-****-5678", MaskDigitsKeepLast("010-1234-5678", 4))
	assert.Equal(t, "***", MaskDigitsKeepLast("123", 4))
	assert.Equal(t, "ab-**", MaskDigitsAll("ab-12"))
	assert.Equal(t, "no digits", MaskDigitsKeepLast("no digits", 4))
}

func TestParseStrict(t *testing.T) {
	for _, raw := range []string{"1", "true", "YES", "on"} {
		v, ok := ParseStrict(raw)
		assert.True(t, ok)
		assert.True(t, v, raw)
	}
	v, ok := ParseStrict("off")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = ParseStrict("")
	assert.False(t, ok)
}

type record struct {
	Note string
	Mail string
}

func (r record) ToMap() map[string]any {
	return map[string]any{"note": r.Note, "mail": r.Mail}
}

type label string

func TestInStructure(t *testing.T) {
	in := map[string]any{
		"raw_text": "카드번호: 1234-5678-9012-3456",
		"nested": map[string]any{
			"phones": []any{"010-1234-5678", 42, nil},
			"tags":   []string{"user@example.com"},
		},
		"set":     map[string]struct{}{"b@x.io": {}},
		"record":  record{Note: "전화 01012345678", Mail: "kim@example.com"},
		"labels":  []label{"010-9876-5432"},
		"skipped": "010-1111-2222",
		"amount":  12000,
	}

	out, ok := InStructure(in, Keys("skipped"), false).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "카드번호: ****-****-****-3456", out["raw_text"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, []any{"***-****-5678", 42, nil}, nested["phones"])
	assert.Equal(t, []string{"u***@example.com"}, nested["tags"])
	assert.Equal(t, map[string]struct{}{"*@x.io": {}}, out["set"])
	assert.Equal(t, map[string]any{"note": "전화 *******5678", "mail": "k***@example.com"}, out["record"])
	assert.Equal(t, []label{"***-****-5432"}, out["labels"])
	assert.Equal(t, "010-1111-2222", out["skipped"])
	assert.Equal(t, 12000, out["amount"])

	// input untouched
	assert.Equal(t, "카드번호: 1234-5678-9012-3456", in["raw_text"])
}

func TestResponseSkipKeys(t *testing.T) {
	in := map[string]any{
		"xlsx_base64": "AAAA/010-1234-5678+BB==",
		"store":       "전화 010-1234-5678",
	}
	out := Response(in, true, "xlsx_base64")
	assert.Equal(t, in["xlsx_base64"], out["xlsx_base64"])
	assert.Equal(t, "전화 ***-****-5678", out["store"])
}

func TestInStructurePointersAndRawJSON(t *testing.T) {
	s := "kim@example.com"
	got := InStructure(&s, nil, false)
	require.IsType(t, &s, got)
	assert.Equal(t, "k***@example.com", *(got.(*string)))

	var nilRecord *record
	assert.Nil(t, InStructure(nilRecord, nil, false))

	assert.Equal(t, json.Number("4111111111111111"), InStructure(json.Number("4111111111111111"), nil, true))

	raw := json.RawMessage(`{"as_contact":"02-123-4567","amount":1000}`)
	redacted := InStructure(raw, nil, false).(json.RawMessage)
	assert.JSONEq(t, `{"as_contact":"**-***-4567","amount":1000}`, string(redacted))
}

func TestDictKeys(t *testing.T) {
	in := map[string]any{
		"error":  "payment failed for card 4111 1111 1111 1111",
		"note":   "전화 010-1234-5678",
		"detail": map[string]any{"logs": []any{"승인번호 12345678"}, "memo": "a@b.io"},
		"auth":   map[string]any{"error": "kim@example.com"},
	}
	out := DictKeys(in, Keys("error", "logs"), Keys("auth"), false)

	assert.Equal(t, "payment failed for card **** **** **** 1111", out["error"])
	assert.Equal(t, "전화 010-1234-5678", out["note"], "unlisted keys pass through")
	detail := out["detail"].(map[string]any)
	assert.Equal(t, []any{"승인번호 ********"}, detail["logs"])
	assert.Equal(t, "a@b.io", detail["memo"])
	assert.Equal(t, in["auth"], out["auth"])
	assert.Nil(t, DictKeys(nil, SensitiveKeys, nil, false))
}

func TestResponse(t *testing.T) {
	in := map[string]any{
		"id":       "a5c1",
		"raw_text": "주민번호 900101-1234567",
		"store":    "contact shop@example.com",
	}
	out := New(false).Response(in)
	assert.Equal(t, "주민번호 900101-*******", out["raw_text"])
	assert.Equal(t, "contact s***@example.com", out["store"])
	assert.Equal(t, "a5c1", out["id"])
}

func TestEngineStrictDefault(t *testing.T) {
	assert.Equal(t, "ref ************1111", New(true).Text("ref 4111111111111111"))
	assert.Equal(t, "ref 4111111111111111", New(false).Text("ref 4111111111111111"))
}

package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers by binary name and records every call. For pdftoppm it
// creates the PNG pdftoppm would have written.
type fakeRunner struct {
	calls     []call
	pdftotext string
	tesseract map[string]string
	maxPage   int
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	switch name {
	case "pdftotext":
		return []byte(f.pdftotext), nil, nil
	case "pdftoppm":
		page := args[4]
		if n, _ := strconv.Atoi(page); f.maxPage > 0 && n > f.maxPage {
			return nil, []byte("Wrong page range given"), errors.New("exit status 99")
		}
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+"-"+page+".png", []byte("png"), 0o600); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	case "tesseract":
		for k, v := range f.tesseract {
			if strings.Contains(args[0], k) {
				return []byte(v), nil, nil
			}
		}
		return []byte("text"), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeRunner) callsTo(name string) []call {
	var out []call
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractorImage(t *testing.T) {
	r := &fakeRunner{tesseract: map[string]string{"r.png": "상호:\t마트  \r\n\n\n\n금액 1,000원\n---\n"}}
	e := newExtractor(Config{}, r, nil)

	res, err := e.Extract(context.Background(), "/tmp/r.png", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "상호: 마트\n\n금액 1,000원", res.Text)
	assert.Equal(t, []string{"/tmp/r.png", "stdout", "-l", "kor+eng"}, r.calls[0].args)
}

func TestExtractorPDFTextLayer(t *testing.T) {
	r := &fakeRunner{pdftotext: "상호: 전자랜드 구매일 2024-03-05\f2쪽 내용입니다\f"}
	e := newExtractor(Config{}, r, nil)

	res, err := e.Extract(context.Background(), "/tmp/doc.pdf", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "-f", "1", "-l", "3", "/tmp/doc.pdf", "-"}, r.calls[0].args)
	assert.Empty(t, r.callsTo("pdftoppm"))
}

func TestExtractorScannedPDFHonoursPageRange(t *testing.T) {
	r := &fakeRunner{maxPage: 2}
	e := newExtractor(Config{DPI: 200}, r, nil)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "text\n\f\ntext", res.Text)
	assert.Len(t, r.callsTo("pdftoppm"), 3)
	assert.Len(t, r.callsTo("tesseract"), 2)
	assert.Equal(t, []string{"-r", "200", "-png", "-f", "1", "-l", "1"}, r.callsTo("pdftoppm")[0].args[:7])
	assert.Contains(t, res.Warnings, "page 3 not rendered")
}

func TestExtractorUnsupported(t *testing.T) {
	e := newExtractor(Config{}, &fakeRunner{}, nil)
	_, err := e.ExtractText(context.Background(), "/tmp/a.gif", nil)
	require.Error(t, err)
}

func TestMockAndProvider(t *testing.T) {
	p, err := New(Settings{Provider: ProviderMock}, nil)
	require.NoError(t, err)
	text, err := p.ExtractText(context.Background(), "any.png", nil)
	require.NoError(t, err)
	assert.Equal(t, MockText, text)

	_, err = New(Settings{Provider: ProviderVision}, nil)
	require.Error(t, err)

	tess, err := New(Settings{Provider: ProviderTesseract}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Extractor{}, tess)

	_, err = New(Settings{Provider: "carrier-pigeon"}, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = MockExtractor{}.ExtractText(ctx, "x", nil)
	require.ErrorIs(t, err, context.Canceled)
}

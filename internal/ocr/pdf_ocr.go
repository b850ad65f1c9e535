package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

// minTextLayerRunes is the shortest text layer treated as a born-digital PDF.
const minTextLayerRunes = 16

func (e *Extractor) extractPDF(ctx context.Context, path string, pages []int) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	txt, n, err := e.pdfToText(ctx, path, pages)
	if err == nil && len([]rune(strings.TrimSpace(txt))) >= minTextLayerRunes {
		res.Text, res.Pages, res.Method = Normalize(txt), n, "pdf-text"
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, "pdftotext failed; falling back to OCR")
	}

	txt, n, warns, err := e.pdfToOCR(ctx, path, pages)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}
	res.Text, res.Pages, res.Method = Normalize(txt), n, "pdf-ocr"
	return res, nil
}

func pageBounds(pages []int) (first, last int) {
	if len(pages) == 0 {
		return 0, 0
	}
	first, last = pages[0], pages[0]
	for _, p := range pages[1:] {
		first, last = min(first, p), max(last, p)
	}
	return first, last
}

// pdftotext -layout -enc UTF-8 -eol unix [-f F -l L] <path> -
func (e *Extractor) pdfToText(ctx context.Context, path string, pages []int) (string, int, error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if first, last := pageBounds(pages); first > 0 {
		args = append(args, "-f", strconv.Itoa(first), "-l", strconv.Itoa(last))
	}
	args = append(args, path, "-")
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, args...)
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}
	text := strings.TrimRight(string(out), "\f")
	// a form-feed separates pages
	return text, 1 + strings.Count(text, "\f"), nil
}

// pdfToOCR rasterizes each requested page and runs tesseract on it. A page past
// the end of the document stops the loop once at least one page was read.
func (e *Extractor) pdfToOCR(ctx context.Context, path string, pages []int) (string, int, []string, error) {
	tmpDir, err := os.MkdirTemp("", "wt-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "error", err)
		}
	}()

	if len(pages) == 0 {
		pages = []int{1}
	}

	var b strings.Builder
	var warns []string
	done := 0
	for _, p := range pages {
		img, err := e.renderPage(ctx, path, filepath.Join(tmpDir, "page"+strconv.Itoa(p)), p)
		if err != nil {
			if done > 0 {
				warns = append(warns, fmt.Sprintf("page %d not rendered", p))
				break
			}
			return "", 0, warns, err
		}
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
		done++
	}
	if done == 0 {
		return "", 0, warns, errors.New("no pages recognized")
	}
	return b.String(), done, warns, nil
}

// pdftoppm -r DPI -png -f P -l P <in.pdf> <prefix>
func (e *Extractor) renderPage(ctx context.Context, path, prefix string, page int) (string, error) {
	p := strconv.Itoa(page)
	if _, _, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, "-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", p, "-l", p, path, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w", page, err)
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm page %d: no image produced", page)
	}
	return matches[0], nil
}

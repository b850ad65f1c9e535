// Package pdfpages decides which PDF pages are submitted to OCR.
package pdfpages

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/ledongthuc/pdf"
)

var rePageMarker = regexp.MustCompile(`/Type\s*/Page`)

// Selection is the outcome of the page policy.
type Selection struct {
	Pages   []int  // 1-based
	Count   int    // estimated page count, 0 when unknown
	Warning string // set when pages were dropped
}

// Truncated reports whether fewer pages than the document holds were selected.
func (s Selection) Truncated() bool { return s.Warning != "" }

// SelectFile reads path and applies Select. An unreadable file gets the default pages.
func SelectFile(path string, limit int) Selection {
	data, err := os.ReadFile(path)
	if err != nil {
		return Select(nil, limit)
	}
	return Select(data, limit)
}

// Select picks pages 1..min(count, limit). When the count cannot be estimated it
// falls back to 1..limit without a warning.
func Select(data []byte, limit int) Selection {
	count, ok := CountPages(data)
	if !ok {
		return Selection{Pages: pageRange(limit)}
	}
	if count > limit {
		return Selection{
			Pages:   pageRange(limit),
			Count:   count,
			Warning: TruncationWarning(limit, count),
		}
	}
	return Selection{Pages: pageRange(count), Count: count}
}

// TruncationWarning formats the non-fatal warning recorded on the job.
func TruncationWarning(limit, count int) string {
	return fmt.Sprintf("PDF pages truncated: processed %d of %d", limit, count)
}

// CountPages counts page objects by their "/Type /Page" marker. When no marker is
// visible (object streams) it asks a structural parser instead.
func CountPages(data []byte) (int, bool) {
	if len(data) == 0 {
		return 0, false
	}
	if n := countMarkers(data); n > 0 {
		return n, true
	}
	if n := structuralCount(data); n > 0 {
		return n, true
	}
	return 0, false
}

func countMarkers(data []byte) int {
	n := 0
	for _, loc := range rePageMarker.FindAllIndex(data, -1) {
		// "/Type /Pages" is the page tree root, not a page.
		if end := loc[1]; end < len(data) && data[end] == 's' {
			continue
		}
		n++
	}
	return n
}

func structuralCount(data []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}

func pageRange(n int) []int {
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Package pdf holds the local PDF adapters: text-layer extraction and
// first-page raster selection for vision analysis.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pageSeparator = "\n\n"

// TextExtractor reads the embedded text layer of a PDF.
type TextExtractor struct {
	maxPages int
}

// NewTextExtractor limits extraction to maxPages pages; 0 reads every page.
func NewTextExtractor(maxPages int) *TextExtractor {
	return &TextExtractor{maxPages: maxPages}
}

func (e *TextExtractor) ExtractText(ctx context.Context, data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	limit := pages
	if e.maxPages > 0 && e.maxPages < limit {
		limit = e.maxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("extract page %d: %w", i, err)
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageSeparator)
		}
		b.WriteString(pageText)
	}
	return b.String(), pages, nil
}

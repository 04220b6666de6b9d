// Package extractor converts PDF bytes to plain text using ledongthuc/pdf.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
)

// PDF extracts text page by page. Each page's text is followed by a newline
// and the result is passed through CleanText.
type PDF struct{}

// New returns a PDF extractor.
func New() *PDF {
	return &PDF{}
}

// Extract returns the document text. An error wraps ErrExtraction; a document
// without text yields "" and no error.
func (PDF) Extract(ctx context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = apperrors.Wrap(apperrors.ErrExtraction, fmt.Errorf("parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrExtraction, fmt.Errorf("opening pdf: %w", err))
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", apperrors.Wrap(apperrors.ErrExtraction, err)
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			sb.WriteString("\n")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrExtraction, fmt.Errorf("page %d: %w", i, err))
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return CleanText(sb.String()), nil
}

// CleanText makes extracted text safe to store in a PostgreSQL TEXT column:
// NUL characters are dropped, invalid UTF-8 sequences are removed and
// surrounding whitespace is trimmed. Fonts without a ToUnicode map often
// decode to U+0000.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ToValidUTF8(text, "")
	return strings.TrimSpace(text)
}

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
)

// buildPDF writes a minimal single-font PDF with one page per entry. An empty
// entry produces a page with an empty content stream.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_SinglePage(t *testing.T) {
	text, err := New().Extract(context.Background(), buildPDF("Hello World"))
	require.NoError(t, err)
	assert.Contains(t, text, "Hello World")
	assert.Equal(t, strings.TrimSpace(text), text)
}

func TestExtract_MultiplePagesInOrder(t *testing.T) {
	text, err := New().Extract(context.Background(), buildPDF("First page", "Second page"))
	require.NoError(t, err)

	first := strings.Index(text, "First page")
	second := strings.Index(text, "Second page")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestExtract_NoText(t *testing.T) {
	text, err := New().Extract(context.Background(), buildPDF(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_NotAPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), []byte("plain text, not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestExtract_Truncated(t *testing.T) {
	data := buildPDF("Hello World")
	_, err := New().Extract(context.Background(), data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestExtract_DropsNULCharacters(t *testing.T) {
	text, err := New().Extract(context.Background(), buildPDF(`A\000B`))
	require.NoError(t, err)
	assert.NotContains(t, text, "\x00")
	assert.Contains(t, text, "AB")
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  hello\n", "hello"},
		{"nul", "A\x00B\x00", "AB"},
		{"invalid utf8", "caf\xc3\x28e", "caf(e"},
		{"only nul and space", " \x00 ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

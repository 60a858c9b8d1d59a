package convert

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one text line per page.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	n := len(pages)
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestFitzExtractor_ExtractPages(t *testing.T) {
	doc := buildPDF("Alpha", "Delta")
	require.True(t, DetectPDF(doc))

	pages, err := NewFitzExtractor().ExtractPages(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Alpha")
	assert.Contains(t, pages[1], "Delta")
}

func TestFitzExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFitzExtractor().ExtractPages(ctx, buildPDF("Alpha"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTesseractExtractor_RejectsNonImages(t *testing.T) {
	_, err := NewTesseractExtractor("", "").ExtractPages(context.Background(), []byte("%PDF-1.4"))
	assert.Error(t, err)
}

func TestTesseractExtractor_MissingBinary(t *testing.T) {
	e := NewTesseractExtractor("/nonexistent/tesseract", "eng")
	_, err := e.ExtractPages(context.Background(), []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	assert.Error(t, err)
}

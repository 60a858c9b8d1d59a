package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Extractor turns document bytes into per-page text.
type Extractor interface {
	ExtractPages(ctx context.Context, doc []byte) ([]string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, doc []byte) ([]string, error)

// ExtractPages calls f.
func (f ExtractorFunc) ExtractPages(ctx context.Context, doc []byte) ([]string, error) {
	return f(ctx, doc)
}

var pdfSignature = []byte("%PDF-")

// DetectPDF reports whether doc starts with the PDF signature. Leading
// whitespace and a UTF-8 BOM are tolerated.
func DetectPDF(doc []byte) bool {
	doc = bytes.TrimPrefix(doc, []byte("\xef\xbb\xbf"))
	doc = bytes.TrimLeft(doc, " \t\r\n")
	return bytes.HasPrefix(doc, pdfSignature)
}

// FitzExtractor extracts the text layer of PDF documents with MuPDF.
type FitzExtractor struct{}

// NewFitzExtractor creates a PDF text extractor.
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{}
}

// ExtractPages returns the text of every page in order.
func (e *FitzExtractor) ExtractPages(ctx context.Context, doc []byte) ([]string, error) {
	d, err := fitz.NewFromMemory(doc)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("document is password protected: %w", err)
		}
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer d.Close()

	pageCount := d.NumPage()
	pages := make([]string, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := d.Text(pageNum)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageNum+1, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}

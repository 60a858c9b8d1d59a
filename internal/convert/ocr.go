package convert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
)

// Image types accepted by the OCR path.
var ocrImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// DetectImage sniffs doc and returns its image content type, or false when
// it is not an image the OCR path accepts.
func DetectImage(doc []byte) (string, bool) {
	contentType := http.DetectContentType(doc)
	_, ok := ocrImageTypes[contentType]
	return contentType, ok
}

// TesseractExtractor recognises the text in an image by running the
// tesseract binary. The whole image is returned as a single page.
type TesseractExtractor struct {
	Path     string
	Language string
}

// NewTesseractExtractor creates an OCR extractor. Empty values fall back to
// "tesseract" on PATH and English.
func NewTesseractExtractor(path, language string) *TesseractExtractor {
	if path == "" {
		path = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractExtractor{Path: path, Language: language}
}

// ExtractPages writes the image to a temp file and reads tesseract's stdout.
func (e *TesseractExtractor) ExtractPages(ctx context.Context, doc []byte) ([]string, error) {
	contentType, ok := DetectImage(doc)
	if !ok {
		return nil, fmt.Errorf("unsupported image type %s", contentType)
	}

	tmp, err := os.CreateTemp("", "ocr-*"+ocrImageTypes[contentType])
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, tmp.Name(), "stdout", "-l", e.Language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("tesseract: %w", err)
		}
		return nil, fmt.Errorf("tesseract: %s: %w", msg, err)
	}

	return []string{stdout.String()}, nil
}

package convert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/doc-converter/internal/domain"
)

func staticPages(pages ...string) Extractor {
	return ExtractorFunc(func(ctx context.Context, doc []byte) ([]string, error) {
		return pages, nil
	})
}

func TestPipeline_Convert(t *testing.T) {
	p := NewPipeline(staticPages("Alpha\nBeta\nGamma\n", "Delta"), time.Second, nil)

	result, err := p.Convert(context.Background(), []byte("%PDF-1.4"), DefaultDelimiters())
	require.NoError(t, err)

	assert.Equal(t, "\"Alpha\"\n\"Beta\"\n\"Gamma\"\n\"Delta\"", string(result.Data))
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, 4, result.RowCount)
}

func TestPipeline_EmptyTextIsSuccess(t *testing.T) {
	p := NewPipeline(staticPages("", "  \n"), time.Second, nil)

	result, err := p.Convert(context.Background(), []byte("%PDF-1.4"), DefaultDelimiters())
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.RowCount)
}

func TestPipeline_RejectsInvalidInput(t *testing.T) {
	p := NewPipeline(staticPages("x"), time.Second, nil)

	_, err := p.Convert(context.Background(), nil, DefaultDelimiters())
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	bad := DefaultDelimiters()
	bad.TextDelimiter = "ab"
	_, err = p.Convert(context.Background(), []byte("%PDF-1.4"), bad)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestPipeline_ExtractionFailure(t *testing.T) {
	cause := errors.New("xref table damaged")
	p := NewPipeline(ExtractorFunc(func(ctx context.Context, doc []byte) ([]string, error) {
		return nil, cause
	}), time.Second, nil)

	_, err := p.Convert(context.Background(), []byte("%PDF-1.4"), DefaultDelimiters())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConversionFailed))
	assert.ErrorIs(t, err, cause)
}

func TestPipeline_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := NewPipeline(ExtractorFunc(func(ctx context.Context, doc []byte) ([]string, error) {
		<-release
		return []string{"late"}, nil
	}), 20*time.Millisecond, nil)

	started := time.Now()
	_, err := p.Convert(context.Background(), []byte("%PDF-1.4"), DefaultDelimiters())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConversionFailed))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), time.Second)
}

func TestPipeline_ExtractText(t *testing.T) {
	p := NewPipeline(staticPages("first", "second"), time.Second, nil)

	text, err := p.ExtractText(context.Background(), []byte{0x89})
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", text)
}

func TestDetectPDF(t *testing.T) {
	assert.True(t, DetectPDF([]byte("%PDF-1.7\n...")))
	assert.True(t, DetectPDF([]byte("\xef\xbb\xbf\n%PDF-1.4")))
	assert.False(t, DetectPDF([]byte("PK\x03\x04")))
	assert.False(t, DetectPDF(nil))
}

func TestDetectImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	contentType, ok := DetectImage(png)
	assert.True(t, ok)
	assert.Equal(t, "image/png", contentType)

	_, ok = DetectImage([]byte("GIF89a......"))
	assert.True(t, ok)

	_, ok = DetectImage([]byte("%PDF-1.4"))
	assert.False(t, ok)
}

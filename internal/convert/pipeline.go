// Package convert extracts text from uploaded documents and encodes it as
// delimited rows.
package convert

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

// DefaultTimeout bounds a conversion when none is configured.
const DefaultTimeout = 60 * time.Second

// Result is the outcome of one conversion.
type Result struct {
	Data      []byte
	PageCount int
	RowCount  int
	Duration  time.Duration
}

// Pipeline runs an Extractor under a deadline and formats its output.
type Pipeline struct {
	extractor Extractor
	timeout   time.Duration
	logger    *observability.Logger
}

// NewPipeline creates a pipeline. A non-positive timeout uses DefaultTimeout.
func NewPipeline(extractor Extractor, timeout time.Duration, logger *observability.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Pipeline{
		extractor: extractor,
		timeout:   timeout,
		logger:    logger.WithComponent("convert"),
	}
}

// Convert extracts doc and encodes its lines with cfg. A document with no
// extractable text converts to an empty result.
func (p *Pipeline) Convert(ctx context.Context, doc []byte, cfg DelimiterConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	pages, err := p.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:      Format(pages, cfg),
		PageCount: len(pages),
		RowCount:  CountRows(pages),
		Duration:  time.Since(started),
	}

	p.logger.Debug().
		Int("pages", result.PageCount).
		Int("rows", result.RowCount).
		Int("bytes", len(result.Data)).
		Dur("duration", result.Duration).
		Msg("Conversion complete")

	return result, nil
}

// ExtractText returns the plain extracted text with pages joined by a line
// break.
func (p *Pipeline) ExtractText(ctx context.Context, doc []byte) (string, error) {
	pages, err := p.Extract(ctx, doc)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, pageBreak), nil
}

// Extract runs the extractor with the pipeline deadline. Extraction failures
// and timeouts are reported as conversion failures.
func (p *Pipeline) Extract(ctx context.Context, doc []byte) ([]string, error) {
	if len(doc) == 0 {
		return nil, domain.InvalidInput("document is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		pages []string
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		pages, err := p.extractor.ExtractPages(ctx, doc)
		done <- outcome{pages: pages, err: err}
	}()

	select {
	case <-ctx.Done():
		p.logger.Warn().Dur("timeout", p.timeout).Msg("Extraction abandoned")
		return nil, timeoutError(ctx.Err())
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled) {
				return nil, timeoutError(out.err)
			}
			p.logger.Warn().Err(out.err).Msg("Extraction failed")
			return nil, domain.ConversionFailed("text extraction failed", out.err)
		}
		return out.pages, nil
	}
}

func timeoutError(err error) error {
	if errors.Is(err, context.Canceled) {
		return domain.ConversionFailed("conversion cancelled", err)
	}
	return domain.ConversionFailed("conversion timed out", err)
}

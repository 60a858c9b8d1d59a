package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/doc-converter/internal/auth"
	"github.com/spherical-ai/doc-converter/internal/blobstore"
	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/convert"
	"github.com/spherical-ai/doc-converter/internal/credstore"
	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/registry"
	"github.com/spherical-ai/doc-converter/internal/retry"
)

// retryConfig governs store connection attempts at startup, when a database
// or redis container may still be coming up.
var retryConfig = retry.DefaultConfig()

// Runtime is a Service together with the stores it owns.
type Runtime struct {
	*Service
	Identities credstore.Store
	Blobs      blobstore.Store
}

// Open builds a Service from configuration, opening the configured stores.
func Open(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Runtime, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	var identities credstore.Store
	err := retry.Do(ctx, retryConfig, logger, "open credential store", func(ctx context.Context) error {
		var err error
		identities, err = credstore.Open(ctx, cfg.Credentials)
		return err
	})
	if err != nil {
		return nil, err
	}

	var blobs blobstore.Store
	err = retry.Do(ctx, retryConfig, logger, "open blob store", func(ctx context.Context) error {
		var err error
		blobs, err = blobstore.Open(ctx, cfg.Blobs)
		return err
	})
	if err != nil {
		identities.Close()
		return nil, err
	}

	authManager, err := auth.NewManager(identities, cfg.Auth, auth.WithLogger(logger))
	if err != nil {
		identities.Close()
		blobs.Close()
		return nil, fmt.Errorf("create auth manager: %w", err)
	}

	pipeline := convert.NewPipeline(convert.NewFitzExtractor(), cfg.Conversion.Timeout, logger)

	var ocr *convert.Pipeline
	if cfg.OCR.Enabled {
		ocr = convert.NewPipeline(
			convert.NewTesseractExtractor(cfg.OCR.TesseractPath, cfg.OCR.Language),
			cfg.OCR.Timeout,
			logger,
		)
	}

	reg := registry.New(identities, blobs,
		registry.WithLocatorPrefix(cfg.Conversion.LocatorPrefix),
		registry.WithMinSweepGrace(cfg.Conversion.MinSweepGrace()),
		registry.WithLogger(logger),
	)

	svc := New(authManager, pipeline, ocr, reg, Limits{
		MaxDocumentBytes: cfg.Conversion.MaxUploadBytes,
		MaxImageBytes:    cfg.OCR.MaxImageBytes,
	}, logger)

	logger.Info().
		Str("credentials", cfg.Credentials.Driver).
		Str("blobs", cfg.Blobs.Driver).
		Bool("ocr", cfg.OCR.Enabled).
		Msg("Service initialized")

	return &Runtime{Service: svc, Identities: identities, Blobs: blobs}, nil
}

// Close releases the stores.
func (r *Runtime) Close() error {
	return errors.Join(r.Blobs.Close(), r.Identities.Close())
}

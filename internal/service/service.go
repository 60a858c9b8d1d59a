// Package service validates caller input and drives authentication,
// conversion and artifact storage on the caller's behalf.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical-ai/doc-converter/internal/auth"
	"github.com/spherical-ai/doc-converter/internal/convert"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/registry"
)

// Limits bounds accepted uploads. Zero means unlimited.
type Limits struct {
	MaxDocumentBytes int64
	MaxImageBytes    int64
}

// Service wires the core components together.
type Service struct {
	auth     *auth.Manager
	pipeline *convert.Pipeline
	ocr      *convert.Pipeline
	registry *registry.Registry
	limits   Limits
	logger   *observability.Logger
}

// New creates a Service. ocr may be nil, in which case image recognition is
// unavailable.
func New(
	authManager *auth.Manager,
	pipeline *convert.Pipeline,
	ocr *convert.Pipeline,
	reg *registry.Registry,
	limits Limits,
	logger *observability.Logger,
) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		auth:     authManager,
		pipeline: pipeline,
		ocr:      ocr,
		registry: reg,
		limits:   limits,
		logger:   logger.WithComponent("service"),
	}
}

// RegisterRequest carries registration input.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries login input.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConvertRequest carries one uploaded document.
type ConvertRequest struct {
	FileName   string
	Document   []byte
	Delimiters convert.DelimiterConfig
}

// RecognizeRequest carries one uploaded image.
type RecognizeRequest struct {
	Image      []byte
	AsCSV      bool
	Delimiters convert.DelimiterConfig
}

// RecognizeResult is the outcome of image recognition. CSV is set only when
// requested.
type RecognizeResult struct {
	Text string
	CSV  []byte
}

// Register creates an identity and returns a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*auth.Session, error) {
	return s.auth.Register(ctx, req.Email, req.Password)
}

// Login returns a fresh session for valid credentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*auth.Session, error) {
	return s.auth.Login(ctx, req.Email, req.Password)
}

// Authenticate resolves a bearer token to its identity.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	return s.auth.Authenticate(ctx, token)
}

// Convert extracts the document, encodes it and stores the result for the
// caller.
func (s *Service) Convert(ctx context.Context, identityID string, req ConvertRequest) (*domain.ArtifactRef, error) {
	if len(req.Document) == 0 {
		return nil, domain.InvalidInput("document is required", nil)
	}
	if s.limits.MaxDocumentBytes > 0 && int64(len(req.Document)) > s.limits.MaxDocumentBytes {
		return nil, domain.InvalidInput(fmt.Sprintf("document exceeds %d bytes", s.limits.MaxDocumentBytes), nil)
	}
	if !convert.DetectPDF(req.Document) {
		return nil, domain.InvalidInput("document is not a PDF", nil)
	}

	cfg := req.Delimiters.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.WithIdentity(identityID)
	logger.Debug().
		Str("file_name", req.FileName).
		Int("bytes", len(req.Document)).
		Msg("Converting document")

	result, err := s.pipeline.Convert(ctx, req.Document, cfg)
	if err != nil {
		logger.Warn().Err(err).Str("file_name", req.FileName).Msg("Conversion failed")
		return nil, err
	}

	return s.registry.Store(ctx, identityID, strings.TrimSpace(req.FileName), result.Data)
}

// ListArtifacts returns the caller's artifacts in creation order.
func (s *Service) ListArtifacts(ctx context.Context, identityID string) ([]domain.ArtifactRef, error) {
	return s.registry.List(ctx, identityID)
}

// DescribeArtifact returns one of the caller's artifacts without its bytes.
func (s *Service) DescribeArtifact(ctx context.Context, identityID, artifactID string) (*domain.ArtifactRef, error) {
	return s.registry.Describe(ctx, identityID, artifactID)
}

// DownloadArtifact returns one of the caller's artifacts with its bytes.
func (s *Service) DownloadArtifact(ctx context.Context, identityID, artifactID string) (*domain.ArtifactRef, []byte, error) {
	return s.registry.Get(ctx, identityID, artifactID)
}

// DeleteArtifact removes one of the caller's artifacts.
func (s *Service) DeleteArtifact(ctx context.Context, identityID, artifactID string) error {
	return s.registry.Delete(ctx, identityID, artifactID)
}

// RecognitionEnabled reports whether image recognition is configured.
func (s *Service) RecognitionEnabled() bool {
	return s.ocr != nil
}

// Recognize returns the text in an image, optionally encoded as rows.
func (s *Service) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	if s.ocr == nil {
		return nil, domain.ConversionFailed("image recognition is not enabled", nil)
	}
	if len(req.Image) == 0 {
		return nil, domain.InvalidInput("image is required", nil)
	}
	if s.limits.MaxImageBytes > 0 && int64(len(req.Image)) > s.limits.MaxImageBytes {
		return nil, domain.InvalidInput(fmt.Sprintf("image exceeds %d bytes", s.limits.MaxImageBytes), nil)
	}
	if contentType, ok := convert.DetectImage(req.Image); !ok {
		return nil, domain.InvalidInput(fmt.Sprintf("unsupported image type %s", contentType), nil)
	}

	if !req.AsCSV {
		text, err := s.ocr.ExtractText(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		return &RecognizeResult{Text: text}, nil
	}

	result, err := s.ocr.Convert(ctx, req.Image, req.Delimiters.WithDefaults())
	if err != nil {
		return nil, err
	}
	return &RecognizeResult{CSV: result.Data}, nil
}

// Sweep removes orphaned artifact blobs.
func (s *Service) Sweep(ctx context.Context, opts registry.SweepOptions) (*registry.SweepReport, error) {
	return s.registry.Sweep(ctx, opts)
}

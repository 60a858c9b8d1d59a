package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spherical-ai/doc-converter/internal/auth"
	"github.com/spherical-ai/doc-converter/internal/blobstore"
	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/convert"
	"github.com/spherical-ai/doc-converter/internal/credstore"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/registry"
	"github.com/spherical-ai/doc-converter/internal/retry"
)

const testKey = "0123456789abcdef0123456789abcdef"

var (
	samplePDF = []byte("%PDF-1.4 sample")
	samplePNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

func pages(p ...string) convert.Extractor {
	return convert.ExtractorFunc(func(ctx context.Context, doc []byte) ([]string, error) {
		return p, nil
	})
}

func newTestService(t *testing.T, extractor convert.Extractor, ocr convert.Extractor) *Service {
	t.Helper()

	identities, err := credstore.NewFileStore(filepath.Join(t.TempDir(), "identities.json"))
	require.NoError(t, err)

	authManager, err := auth.NewManager(identities, config.AuthConfig{
		SigningKey:        testKey,
		Issuer:            "doc-converter",
		TokenTTL:          time.Hour,
		BcryptCost:        bcrypt.MinCost,
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	var ocrPipeline *convert.Pipeline
	if ocr != nil {
		ocrPipeline = convert.NewPipeline(ocr, time.Second, nil)
	}

	return New(
		authManager,
		convert.NewPipeline(extractor, time.Second, nil),
		ocrPipeline,
		registry.New(identities, blobstore.NewMemoryStore()),
		Limits{MaxDocumentBytes: 1024, MaxImageBytes: 64},
		nil,
	)
}

func register(t *testing.T, s *Service, email string) *domain.Identity {
	t.Helper()
	ctx := context.Background()

	session, err := s.Register(ctx, RegisterRequest{Email: email, Password: "correct horse"})
	require.NoError(t, err)

	identity, err := s.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	return identity
}

func TestService_ConvertLifecycle(t *testing.T) {
	s := newTestService(t, pages("Alpha\nBeta\nGamma\n", "Delta"), nil)
	ctx := context.Background()
	alice := register(t, s, "alice@example.com")

	ref, err := s.Convert(ctx, alice.ID, ConvertRequest{FileName: "greek.pdf", Document: samplePDF})
	require.NoError(t, err)
	assert.Equal(t, "greek.csv", ref.DerivedName)

	refs, err := s.ListArtifacts(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	_, data, err := s.DownloadArtifact(ctx, alice.ID, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "\"Alpha\"\n\"Beta\"\n\"Gamma\"\n\"Delta\"", string(data))

	described, err := s.DescribeArtifact(ctx, alice.ID, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ref.Checksum, described.Checksum)

	require.NoError(t, s.DeleteArtifact(ctx, alice.ID, ref.ID))
	_, _, err = s.DownloadArtifact(ctx, alice.ID, ref.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	session, err := s.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, 0, session.Identity.ArtifactCount)
}

func TestService_ConvertRejectsBadInput(t *testing.T) {
	s := newTestService(t, pages("x"), nil)
	ctx := context.Background()
	alice := register(t, s, "alice@example.com")

	tests := []struct {
		name string
		req  ConvertRequest
	}{
		{"empty document", ConvertRequest{FileName: "a.pdf"}},
		{"not a pdf", ConvertRequest{FileName: "a.pdf", Document: []byte("hello")}},
		{"too large", ConvertRequest{FileName: "a.pdf", Document: append([]byte("%PDF-"), make([]byte, 2048)...)}},
		{"bad delimiter", ConvertRequest{
			FileName:   "a.pdf",
			Document:   samplePDF,
			Delimiters: convert.DelimiterConfig{LineDelimiter: "|"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Convert(ctx, alice.ID, tt.req)
			assert.True(t, domain.IsKind(err, domain.KindInvalidInput), "got %v", err)
		})
	}

	refs, err := s.ListArtifacts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestService_ConversionFailureStoresNothing(t *testing.T) {
	s := newTestService(t, convert.ExtractorFunc(func(ctx context.Context, doc []byte) ([]string, error) {
		return nil, errors.New("encrypted")
	}), nil)
	ctx := context.Background()
	alice := register(t, s, "alice@example.com")

	_, err := s.Convert(ctx, alice.ID, ConvertRequest{FileName: "a.pdf", Document: samplePDF})
	assert.True(t, domain.IsKind(err, domain.KindConversionFailed))

	refs, err := s.ListArtifacts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestService_EmptyExtractionStillStores(t *testing.T) {
	s := newTestService(t, pages(""), nil)
	ctx := context.Background()
	alice := register(t, s, "alice@example.com")

	ref, err := s.Convert(ctx, alice.ID, ConvertRequest{FileName: "blank.pdf", Document: samplePDF})
	require.NoError(t, err)
	assert.Equal(t, int64(0), ref.SizeBytes)
}

func TestService_ArtifactsAreOwnerScoped(t *testing.T) {
	s := newTestService(t, pages("x"), nil)
	ctx := context.Background()
	alice := register(t, s, "alice@example.com")
	bob := register(t, s, "bob@example.com")

	ref, err := s.Convert(ctx, alice.ID, ConvertRequest{FileName: "a.pdf", Document: samplePDF})
	require.NoError(t, err)

	_, _, err = s.DownloadArtifact(ctx, bob.ID, ref.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.True(t, domain.IsKind(s.DeleteArtifact(ctx, bob.ID, ref.ID), domain.KindNotFound))

	_, _, err = s.DownloadArtifact(ctx, alice.ID, ref.ID)
	assert.NoError(t, err)
}

func TestService_Recognize(t *testing.T) {
	s := newTestService(t, pages("x"), pages("Invoice \"42\"\n\nTotal"))
	ctx := context.Background()
	require.True(t, s.RecognitionEnabled())

	result, err := s.Recognize(ctx, RecognizeRequest{Image: samplePNG})
	require.NoError(t, err)
	assert.Equal(t, "Invoice \"42\"\n\nTotal", result.Text)
	assert.Nil(t, result.CSV)

	result, err = s.Recognize(ctx, RecognizeRequest{Image: samplePNG, AsCSV: true})
	require.NoError(t, err)
	assert.Equal(t, "\"Invoice \"\"42\"\"\"\n\"Total\"", string(result.CSV))

	_, err = s.Recognize(ctx, RecognizeRequest{Image: samplePDF})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = s.Recognize(ctx, RecognizeRequest{Image: append(samplePNG, make([]byte, 128)...)})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = s.Recognize(ctx, RecognizeRequest{})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestService_RecognizeDisabled(t *testing.T) {
	s := newTestService(t, pages("x"), nil)

	assert.False(t, s.RecognitionEnabled())
	_, err := s.Recognize(context.Background(), RecognizeRequest{Image: samplePNG})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.SigningKey = testKey
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Credentials.File.Path = filepath.Join(t.TempDir(), "identities.json")
	cfg.Blobs.Driver = "memory"

	rt, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.False(t, rt.RecognitionEnabled())
	session, err := rt.Register(context.Background(), RegisterRequest{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestOpen_FailsOnBadStore(t *testing.T) {
	saved := retryConfig
	retryConfig.MaxRetries = 1
	retryConfig.InitialBackoff = time.Millisecond
	t.Cleanup(func() { retryConfig = saved })

	cfg := config.DefaultConfig()
	cfg.Auth.SigningKey = testKey
	cfg.Credentials.Driver = "mongodb"

	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpen_ConfigErrorsAreNotRetried(t *testing.T) {
	tests := map[string]func(*config.Config){
		"credentials driver": func(c *config.Config) { c.Credentials.Driver = "mongodb" },
		"blobs driver": func(c *config.Config) {
			c.Credentials.File.Path = filepath.Join(t.TempDir(), "identities.json")
			c.Blobs.Driver = "s3"
		},
		"blobs compression": func(c *config.Config) {
			c.Credentials.File.Path = filepath.Join(t.TempDir(), "identities.json")
			c.Blobs.Dir = t.TempDir()
			c.Blobs.Compression = "lz4"
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Auth.SigningKey = testKey
			mutate(cfg)

			started := time.Now()
			_, err := Open(context.Background(), cfg, nil)
			require.Error(t, err)
			assert.True(t, retry.IsPermanent(err))
			assert.Less(t, time.Since(started), retry.DefaultConfig().InitialBackoff)
		})
	}
}

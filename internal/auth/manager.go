// Package auth registers identities, verifies passwords and issues and
// validates bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/credstore"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

// Session is returned by Register and Login.
type Session struct {
	Identity  domain.IdentitySummary `json:"identity"`
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expiresAt"`
}

// claims is the token payload: subject, issued-at, expiry and issuer.
type claims struct {
	jwt.RegisteredClaims
}

// Manager owns password hashing and token issuance.
type Manager struct {
	store      credstore.Store
	key        []byte
	issuer     string
	ttl        time.Duration
	cost       int
	minPassLen int
	now        func() time.Time
	logger     *observability.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for issuing and checking tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager from the auth configuration.
func NewManager(store credstore.Store, cfg config.AuthConfig, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("signing key is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	m := &Manager{
		store:      store,
		key:        []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		ttl:        cfg.TokenTTL,
		cost:       cost,
		minPassLen: cfg.MinPasswordLength,
		now:        time.Now,
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("auth")
	return m, nil
}

// Register creates a new identity and returns a session for it.
func (m *Manager) Register(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if err := m.validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.InvalidInput("password is too long", err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity, err := m.store.Create(ctx, email, string(hash))
	if errors.Is(err, credstore.ErrConflict) {
		return nil, domain.Conflict("email is already registered", err)
	}
	if err != nil {
		return nil, domain.StorageFailure("failed to create identity", err)
	}

	m.logger.Info().Str("identity_id", identity.ID).Msg("Identity registered")
	return m.issue(identity)
}

// Login verifies the password and returns a fresh session. Unknown emails and
// wrong passwords produce the same error.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.InvalidCredentials()
	}

	identity, err := m.store.FindByEmail(ctx, email)
	if errors.Is(err, credstore.ErrNotFound) {
		// Spend the same hashing time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(m.dummy(), []byte(password))
		return nil, domain.InvalidCredentials()
	}
	if err != nil {
		return nil, domain.StorageFailure("failed to look up identity", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		m.logger.Debug().Str("identity_id", identity.ID).Msg("Password mismatch")
		return nil, domain.InvalidCredentials()
	}

	return m.issue(identity)
}

// Authenticate validates a bearer token and resolves its subject. Tokens are
// valid strictly before their expiry.
func (m *Manager) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.Unauthorized("token is required", nil)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if m.issuer != "" && parsed.Issuer != m.issuer {
		return nil, domain.Unauthorized("token issuer mismatch", nil)
	}
	if parsed.Subject == "" {
		return nil, domain.Unauthorized("token subject is required", nil)
	}
	if parsed.ExpiresAt == nil {
		return nil, domain.Unauthorized("token exp is required", nil)
	}
	if !parsed.ExpiresAt.Time.After(m.now()) {
		return nil, domain.Unauthorized("token is expired", nil)
	}

	identity, err := m.store.FindByID(ctx, parsed.Subject)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, domain.Unauthorized("token subject no longer exists", err)
	}
	if err != nil {
		return nil, domain.StorageFailure("failed to look up identity", err)
	}
	return identity, nil
}

func (m *Manager) issue(identity *domain.Identity) (*Session, error) {
	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Identity:  identity.Summary(),
		Token:     signed,
		ExpiresAt: jwt.NewNumericDate(expiresAt).Time.UTC(),
	}, nil
}

func (m *Manager) validateCredentials(email, password string) error {
	if email == "" {
		return domain.InvalidInput("email is required", nil)
	}
	if !strings.Contains(email, "@") {
		return domain.InvalidInput("email is invalid", nil)
	}
	if password == "" {
		return domain.InvalidInput("password is required", nil)
	}
	if len([]rune(password)) < m.minPassLen {
		return domain.InvalidInput(fmt.Sprintf("password must be at least %d characters", m.minPassLen), nil)
	}
	return nil
}

func (m *Manager) dummy() []byte {
	m.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), m.cost)
		if err != nil {
			m.logger.Error().Err(err).Msg("Failed to build dummy hash")
		}
		m.dummyHash = hash
	})
	return m.dummyHash
}

// mapJWTError translates jwt library errors to Unauthorized.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.Unauthorized("token is malformed", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.Unauthorized("token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.Unauthorized("token algorithm is invalid", err)
	default:
		return domain.Unauthorized("token is invalid", err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/service"
)

const maxCredentialsBody = 64 << 10

// AuthHandler handles registration and login.
type AuthHandler struct {
	logger  *observability.Logger
	service *service.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(logger *observability.Logger, svc *service.Service) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: svc,
	}
}

// CredentialsDTO is the registration and login request body.
type CredentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.service.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.service.Login(r.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.InvalidInput("invalid request body", err)
	}
	return nil
}

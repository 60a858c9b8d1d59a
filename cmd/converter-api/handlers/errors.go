// Package handlers provides HTTP handlers for the converter API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidCredentials, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConversionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the error body. Causes are logged,
// never sent to the caller.
func writeError(w http.ResponseWriter, logger *observability.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
	} else {
		var derr *domain.Error
		if errors.As(err, &derr) && derr.Err != nil {
			logger.Debug().Err(err).Str("kind", string(kind)).Msg("Request rejected")
		}
	}

	writeJSON(w, status, ErrorResponse{
		Error:   string(kind),
		Message: domain.MessageOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

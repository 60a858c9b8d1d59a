package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/doc-converter/cmd/converter-api/middleware"
	"github.com/spherical-ai/doc-converter/internal/convert"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/service"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

// ArtifactHandler handles conversion and artifact retrieval.
type ArtifactHandler struct {
	logger         *observability.Logger
	service        *service.Service
	maxUploadBytes int64
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(logger *observability.Logger, svc *service.Service, maxUploadBytes int64) *ArtifactHandler {
	return &ArtifactHandler{
		logger:         logger,
		service:        svc,
		maxUploadBytes: maxUploadBytes,
	}
}

// ArtifactListDTO is the list response body.
type ArtifactListDTO struct {
	Artifacts []domain.ArtifactRef `json:"artifacts"`
}

// DeletedDTO is the delete response body.
type DeletedDTO struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Convert handles POST /api/v1/convert.
func (h *ArtifactHandler) Convert(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("authentication required", nil))
		return
	}

	data, fileName, err := readUpload(w, r, "file", h.maxUploadBytes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	lineDelimiter, err := convert.ParseLineDelimiter(r.FormValue("lineDelimiter"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ref, err := h.service.Convert(r.Context(), identity.ID, service.ConvertRequest{
		FileName: fileName,
		Document: data,
		Delimiters: convert.DelimiterConfig{
			FieldDelimiter:  r.FormValue("fieldDelimiter"),
			TextDelimiter:   r.FormValue("textDelimiter"),
			LineDelimiter:   lineDelimiter,
			EscapeCharacter: r.FormValue("escapeCharacter"),
		},
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", ref.Locator)
	writeJSON(w, http.StatusCreated, ref)
}

// List handles GET /api/v1/artifacts.
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("authentication required", nil))
		return
	}

	refs, err := h.service.ListArtifacts(r.Context(), identity.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ArtifactListDTO{Artifacts: refs})
}

// Get handles GET /api/v1/artifacts/{artifactId}.
func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("authentication required", nil))
		return
	}

	ref, err := h.service.DescribeArtifact(r.Context(), identity.ID, chi.URLParam(r, "artifactId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ref)
}

// Download handles GET /api/v1/artifacts/{artifactId}/download.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("authentication required", nil))
		return
	}

	ref, data, err := h.service.DownloadArtifact(r.Context(), identity.ID, chi.URLParam(r, "artifactId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": ref.DerivedName,
	}))
	if ref.Checksum != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", ref.Checksum))
	}
	http.ServeContent(w, r, ref.DerivedName, ref.CreatedAt, bytes.NewReader(data))
}

// Delete handles DELETE /api/v1/artifacts/{artifactId}.
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("authentication required", nil))
		return
	}

	artifactID := chi.URLParam(r, "artifactId")
	if err := h.service.DeleteArtifact(r.Context(), identity.ID, artifactID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, DeletedDTO{Deleted: true, ID: artifactID})
}

// readUpload reads one multipart file field, bounded by limit.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", domain.InvalidInput(fmt.Sprintf("upload exceeds %d bytes", limit), err)
		}
		return nil, "", domain.InvalidInput("invalid multipart form", err)
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", domain.InvalidInput(fmt.Sprintf("%s is required", field), err)
	}
	if err != nil {
		return nil, "", domain.InvalidInput("invalid upload", err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", domain.InvalidInput("failed to read upload", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", domain.InvalidInput(fmt.Sprintf("upload exceeds %d bytes", limit), nil)
	}

	return data, header.Filename, nil
}

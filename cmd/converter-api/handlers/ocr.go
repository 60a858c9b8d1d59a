package handlers

import (
	"net/http"
	"strings"

	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/service"
)

// OCRHandler handles the unauthenticated image recognition endpoint.
type OCRHandler struct {
	logger        *observability.Logger
	service       *service.Service
	maxImageBytes int64
}

// NewOCRHandler creates a new OCR handler.
func NewOCRHandler(logger *observability.Logger, svc *service.Service, maxImageBytes int64) *OCRHandler {
	return &OCRHandler{
		logger:        logger,
		service:       svc,
		maxImageBytes: maxImageBytes,
	}
}

// TextDTO is the plain-text recognition response.
type TextDTO struct {
	Text string `json:"text"`
}

// Recognize handles POST /api/ocr. The image comes in the "image" form
// field; ?format=csv returns rows instead of JSON.
func (h *OCRHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUpload(w, r, "image", h.maxImageBytes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	asCSV := strings.EqualFold(r.URL.Query().Get("format"), "csv")
	result, err := h.service.Recognize(r.Context(), service.RecognizeRequest{
		Image: data,
		AsCSV: asCSV,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if asCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(result.CSV)
		return
	}
	writeJSON(w, http.StatusOK, TextDTO{Text: result.Text})
}

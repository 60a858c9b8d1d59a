package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/doc-converter/cmd/converter-api/handlers"
	"github.com/spherical-ai/doc-converter/cmd/converter-api/middleware"
	"github.com/spherical-ai/doc-converter/internal/observability"
	"github.com/spherical-ai/doc-converter/internal/service"
)

// RouterConfig holds HTTP-level settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
	MaxImageBytes  int64
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, svc *service.Service, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"doc-converter"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	authHandler := handlers.NewAuthHandler(logger, svc)
	artifactHandler := handlers.NewArtifactHandler(logger, svc, cfg.MaxUploadBytes)

	if svc.RecognitionEnabled() {
		ocrHandler := handlers.NewOCRHandler(logger, svc, cfg.MaxImageBytes)
		r.Post("/api/ocr", ocrHandler.Recognize)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(svc, logger))

			r.Post("/convert", artifactHandler.Convert)

			r.Route("/artifacts", func(r chi.Router) {
				r.Get("/", artifactHandler.List)
				r.Get("/{artifactId}", artifactHandler.Get)
				r.Get("/{artifactId}/download", artifactHandler.Download)
				r.Delete("/{artifactId}", artifactHandler.Delete)
			})
		})
	})

	return r
}

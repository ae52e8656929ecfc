// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds HTTP layer settings.
type RouterConfig struct {
	RequestTimeout           time.Duration
	MaxUploadBytes           int64
	MaxConcurrentExtractions int
	// Ready is consulted by GET /ready. Nil means always ready.
	Ready ReadinessCheck
}

// DefaultRouterConfig returns default configuration values.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout:           90 * time.Second,
		MaxUploadBytes:           25 << 20,
		MaxConcurrentExtractions: 4,
	}
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, pipeline domain.Pipeline, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	defaults := DefaultRouterConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if cfg.MaxConcurrentExtractions <= 0 {
		cfg.MaxConcurrentExtractions = defaults.MaxConcurrentExtractions
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "cv-extractor"})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	extract := NewExtractHandler(logger, pipeline, cfg.MaxUploadBytes, cfg.MaxConcurrentExtractions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", extract.Extract)
	})

	return r
}

// requestLogger copies chi's request id into the observability context and
// logs every request once it completes.
func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := observability.ContextWithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithContext(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

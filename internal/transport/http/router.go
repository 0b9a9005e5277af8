// Package httptransport wires the public HTTP surface: the auth endpoints,
// health, and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "gatekeeper/internal/auth/handler"
	"gatekeeper/internal/platform/health"
	"gatekeeper/internal/platform/middleware"
)

// RouterConfig carries the transport-level knobs the router needs.
type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metadata       middleware.MetadataConfig
	Latency        *middleware.Metrics
}

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(auth *authhandler.Handler, verifier middleware.SessionVerifier, probes *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.NewMetadata(cfg.Metadata).Handler)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(cfg.Latency))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.Use(middleware.ContentTypeJSON)

	r.Route("/api/auth", func(r chi.Router) {
		auth.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(verifier, logger))
			auth.RegisterProtected(r)
		})
	})

	probes.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

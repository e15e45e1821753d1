// Package api exposes the Cortex HTTP surface: ingestion, chat,
// context inspection, the GitHub webhook, health, and metrics.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cortexhq/cortex/internal/chat"
	"github.com/cortexhq/cortex/internal/ingest"
	"github.com/cortexhq/cortex/internal/metrics"
	"github.com/cortexhq/cortex/internal/observability"
	"github.com/cortexhq/cortex/internal/registry"
	"github.com/cortexhq/cortex/internal/vector"
)

// Options configure the HTTP server.
type Options struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxUploadBytes int64

	// WebhookSecret enables X-Hub-Signature-256 verification on the
	// GitHub webhook when non-empty.
	WebhookSecret string
}

// Server routes HTTP requests to the ingestion and chat services.
type Server struct {
	ingestor   *ingest.Service
	dispatcher ingest.Dispatcher
	sessions   *chat.Cache
	store      vector.Store
	registry   *registry.Registry
	metrics    *metrics.Metrics
	audit      *observability.AuditLogger
	logger     *slog.Logger
	opts       Options

	http *http.Server
}

// NewServer wires the handler dependencies. metrics and audit may be nil.
func NewServer(
	ingestor *ingest.Service,
	dispatcher ingest.Dispatcher,
	sessions *chat.Cache,
	store vector.Store,
	reg *registry.Registry,
	m *metrics.Metrics,
	audit *observability.AuditLogger,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ingestor:   ingestor,
		dispatcher: dispatcher,
		sessions:   sessions,
		store:      store,
		registry:   reg,
		metrics:    m,
		audit:      audit,
		logger:     logger,
		opts:       opts,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(corsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/contexts", s.handleListContexts)
	r.Get("/context/{id}/files", s.handleListFiles)
	r.Post("/ingest", s.handleIngest)
	r.Post("/ingest/file", s.handleIngestFile)
	r.Post("/chat", s.handleChat)
	r.Post("/webhook/github", s.handleGitHubWebhook)
	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

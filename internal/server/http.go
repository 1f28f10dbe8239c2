package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/auth"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
	"github.com/joseph-ayodele/cardscan/internal/export"
	repo "github.com/joseph-ayodele/cardscan/internal/repository"
)

// Deps are the services the REST API delegates to.
type Deps struct {
	Auth     *auth.Service
	Contacts *contacts.Service
	Export   *export.Service
	DB       *repo.DB
	Registry *prometheus.Registry
}

// Options tune the REST API.
type Options struct {
	UploadMaxBytes  int64
	UploadDir       string
	ShutdownTimeout time.Duration
}

// HTTPServer serves the REST API, /health and /metrics.
type HTTPServer struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	metrics *httpMetrics
	handler http.Handler
}

func NewHTTPServer(deps Deps, opts Options, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = constants.MaxUploadBytesDefault
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s := &HTTPServer{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		metrics: newHTTPMetrics(deps.Registry),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler { return s.handler }

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.Handle("GET /api/user/me", s.authed(s.handleMe))
	mux.Handle("PUT /api/user/me", s.authed(s.handleUpdateMe))

	mux.Handle("POST /api/upload", s.authed(s.handleUpload))

	mux.Handle("GET /api/contacts", s.authed(s.handleListContacts))
	mux.Handle("POST /api/contacts", s.authed(s.handleCreateContact))
	mux.Handle("GET /api/contacts/{id}", s.authed(s.handleGetContact))
	mux.Handle("PUT /api/contacts/{id}", s.authed(s.handleUpdateContact))
	mux.Handle("DELETE /api/contacts/{id}", s.authed(s.handleDeleteContact))
	mux.Handle("POST /api/contacts/{id}/sent", s.authed(s.handleToggleSent))

	mux.Handle("GET /api/export/vcf", s.authed(s.handleExportVCF))
	mux.Handle("GET /api/export/xlsx", s.authed(s.handleExportXLSX))

	mux.Handle("GET /api/stats", s.authed(s.handleStats))
	mux.Handle("GET /api/activities", s.authed(s.handleActivities))
	mux.Handle("POST /api/activities", s.authed(s.handleLogActivity))
	mux.Handle("GET /api/analytics", s.authed(s.handleAnalytics))

	return s.requestID(s.instrument(mux))
}

// Run listens on addr until ctx ends, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := PingDB(r.Context(), s.deps.DB, s.logger, 2*time.Second); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP API.
type Server struct {
	ports    *Ports
	settings domain.ServerSettings
	handler  http.Handler
}

// New creates the API server.
func New(ports *Ports, settings domain.ServerSettings) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	s := &Server{ports: ports, settings: settings}

	limiter := NewRateLimiter(settings.RateLimitRPS, settings.RateLimitBurst)
	s.handler = logRequests(limiter.Middleware(s.routes()))
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.ports.Metrics != nil {
		mux.Handle("GET /metrics", s.ports.Metrics)
	}

	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /atos", s.handleListActs)
	mux.HandleFunc("GET /atos/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /atos/{id}", s.handleGetAct)
	mux.Handle("POST /atos", s.authed(s.handleCreateAct))
	mux.Handle("POST /atos/batch", s.authed(s.handleBatch))
	mux.Handle("PUT /atos/{id}", s.authed(s.handleUpdateAct))
	mux.Handle("DELETE /atos/{id}", s.authed(s.handleDeleteAct))

	mux.Handle("POST /rpa/run", s.authed(s.handleRun))
	mux.Handle("POST /rpa/schedule", s.authed(s.handleSchedule))
	mux.Handle("GET /rpa/schedules", s.authed(s.handleListSchedules))
	mux.Handle("DELETE /rpa/schedule/{job_id}", s.authed(s.handleUnschedule))
	mux.Handle("GET /rpa/logs", s.authed(s.handleRunLogs))

	return mux
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.settings.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("httpapi: shutdown: %v", err)
		}
	}()

	logger.Info("API listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

// authed requires a valid bearer token.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeProblem(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.ports.Tokens.Verify(token); err != nil {
			logger.Debug("httpapi: rejected token: %v", err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, err)
			return
		}
		next(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

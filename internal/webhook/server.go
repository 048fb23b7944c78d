package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the webhook HTTP server.
type Server struct {
	config     Config
	classifier Classifier
	sender     Sender
	logger     *slog.Logger
	server     *http.Server

	// extra GET routes mounted next to the webhook (oauth callback)
	routes map[string]http.Handler

	// detached dispatches, awaited on shutdown
	inflight sync.WaitGroup

	shutdownTimeout time.Duration
}

// New creates a new webhook server instance. sender may be nil when
// dispatch is disabled.
func New(config Config, classifier Classifier, sender Sender, logger *slog.Logger) *Server {
	// Apply defaults
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if sender == nil {
		config.DispatchEnabled = false
	}

	return &Server{
		config:     config,
		classifier: classifier,
		sender:     sender,
		logger:     logger,
		routes:     make(map[string]http.Handler),

		shutdownTimeout: 5 * time.Second,
	}
}

// MountGet registers an extra GET route. Call before Start or Handler.
func (s *Server) MountGet(path string, h http.Handler) {
	s.routes[path] = h
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // covers a synchronous outbound attempt
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"path", s.config.Path,
		"dispatch_enabled", s.config.DispatchEnabled,
		"async_dispatch", s.config.AsyncDispatch,
		"open_mode", s.config.Secret == "",
	)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		// detached dispatches outlive a failed shutdown too
		s.Wait()
		if err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Wait blocks until detached dispatches have finished.
func (s *Server) Wait() {
	s.inflight.Wait()
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, s.handleHealth)
	r.Post(s.config.Path, s.handleWebhook)
	for path, h := range s.routes {
		r.Method(http.MethodGet, path, h)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Log request (no body content for security)
		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// handleWebhook handles incoming chat events.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// Check if body exceeded limit
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if !VerifySignature(body, s.config.Secret, r.Header.Get(s.config.SignatureHeader)) {
		s.logger.Warn("webhook signature verification failed",
			"path", r.URL.Path,
			"header", s.config.SignatureHeader,
			"request_id", requestID,
		)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "invalid signature")
		return
	}

	event := ParseEvent(body)
	reply := s.classifier.Classify(event.Text)

	switch {
	case !s.config.DispatchEnabled:
		s.logger.Debug("dispatch skipped: no access token", "request_id", requestID)
	case event.ConversationID == "":
		s.logger.Debug("dispatch skipped: no conversation_id", "request_id", requestID)
	default:
		// Upstream disconnects must not cut the attempt short; the sender
		// bounds it with its own timeout.
		dispatchCtx := context.WithoutCancel(r.Context())
		if s.config.AsyncDispatch {
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.sender.Dispatch(dispatchCtx, event.ConversationID, reply)
			}()
		} else {
			out := s.sender.Dispatch(dispatchCtx, event.ConversationID, reply)
			s.logger.Debug("dispatch finished",
				"request_id", requestID,
				"delivery_id", out.DeliveryID,
				"delivered", out.Delivered,
			)
		}
	}

	s.respondJSON(w, http.StatusOK, AckResponse{OK: true})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// Package server exposes recommendations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/applicant-ranker/internal/recommend"
)

const (
	defaultListen         = ":8080"
	defaultRequestTimeout = 120 * time.Second
	defaultTopN           = 5
	shutdownTimeout       = 30 * time.Second
)

// DefaultAllowedOrigins are the local frontend dev servers allowed when no
// origins are configured. "*" allows every origin.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// Recommender is the engine behind /recommend.
type Recommender interface {
	Recommend(ctx context.Context, jobID string, topN int) ([]recommend.Recommendation, error)
}

// Config holds server configuration.
type Config struct {
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	DefaultTopN    int           `mapstructure:"default-top-n"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	// RequestsPerSecond limits /recommend across all clients; 0 disables it.
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	recommender Recommender
	limiter     *rate.Limiter
	cfg         Config
	logger      *zap.Logger
}

func New(cfg Config, recommender Recommender, logger *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = defaultTopN
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		recommender: recommender,
		cfg:         cfg,
		logger:      logger,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /recommend", s.handleRecommend)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(s.withCORS(mux))
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", listener.Addr().String()))
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	jobID := strings.TrimSpace(query.Get("job_id"))
	if jobID == "" {
		s.errorResponse(w, http.StatusBadRequest, "job_id is required")
		return
	}

	topN := s.cfg.DefaultTopN
	if raw := strings.TrimSpace(query.Get("top_n")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.errorResponse(w, http.StatusBadRequest, recommend.ErrInvalidTopN.Error())
			return
		}
		topN = parsed
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.errorResponse(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	results, err := s.recommender.Recommend(ctx, jobID, topN)
	if err != nil {
		var recErr *recommend.Error
		if errors.As(err, &recErr) && recErr.Kind == recommend.KindValidation {
			s.errorResponse(w, http.StatusBadRequest, recErr.Message)
			return
		}

		s.logger.Error("recommendation failed", zap.String("job_id", jobID), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if results == nil {
		results = []recommend.Recommendation{}
	}
	s.jsonResponse(w, http.StatusOK, recommendResponse{JobID: jobID, Recommendations: results})
}

type recommendResponse struct {
	JobID           string                     `json:"job_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS answers preflight requests and allows the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response failed", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

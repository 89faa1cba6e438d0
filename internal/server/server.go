// Package server provides the HTTP API for Shohin.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/config"
	"github.com/hyperjump/shohin/internal/metrics"
	"github.com/hyperjump/shohin/internal/models"
	"github.com/hyperjump/shohin/internal/videos"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk.
const multipartMemory = 32 << 20

// Server is the HTTP server for the Shohin API.
type Server struct {
	videos   *videos.Service
	config   *config.Config
	logger   *zap.Logger
	validate *validator.Validate
	router   chi.Router
	server   *http.Server
}

// NewServer creates a server with the given dependencies and builds its routes.
func NewServer(svc *videos.Service, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		videos:   svc,
		config:   cfg,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(recordDuration)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	// one limiter shared by every route that calls an AI provider
	limit := s.rateLimit()
	r.Route("/api/v1/videos", func(r chi.Router) {
		r.With(limit).Post("/", s.handleUpload)
		r.Get("/search/{title}", s.handleSearch)
		r.Get("/listings/{video_id}", s.handleListings)
		r.Get("/compare/{video_id}", s.handleCompare)
		r.Get("/analytics/{video_id}", s.handleAnalytics)
	})
	r.Route("/api/v1/products", func(r chi.Router) {
		r.With(limit).Post("/analyze", s.handleAnalyze)
		r.With(limit).Post("/detect", s.handleDetect)
		r.Get("/classify", s.handleClassify)
	})
	return r
}

// rateLimit limits the routes that call AI providers, per client IP.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		s.config.Server.RateLimitRequests,
		s.config.Server.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondJSON(w, http.StatusTooManyRequests, models.ErrorResponse("Too many requests"))
		}),
	)
}

// recordDuration observes request latency labelled by the matched route pattern.
func recordDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, fmt.Sprint(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

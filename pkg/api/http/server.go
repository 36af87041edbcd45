package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/challenge/internal/application/challenge"
	"github.com/aescanero/challenge/internal/application/workers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultServiceName = "challenge"

// Executor runs request handlers off the HTTP goroutines
type Executor interface {
	Submit(task workers.Task) (*workers.Future, error)
	Snapshot() workers.Snapshot
}

// ChallengeService answers challenge queries
type ChallengeService interface {
	ListAll(ctx context.Context) ([]challenge.Challenge, error)
	GetByID(ctx context.Context, id int) ([]challenge.Challenge, error)
}

// RequestMetrics records request outcomes
type RequestMetrics interface {
	ObserveRequest(route, status string, duration time.Duration)
	RecordRejection()
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	server     *http.Server
	pool       Executor
	challenges ChallengeService
	metrics    RequestMetrics
	logger     *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr       string
	Pool       Executor
	Challenges ChallengeService
	Metrics    RequestMetrics
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger

	// Tracing. Nil values fall back to the global provider and propagator.
	ServiceName    string
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracingMiddleware(cfg))
	router.Use(requestID())
	router.Use(corsMiddleware())
	router.Use(requestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}

	s := &Server{
		router:     router,
		pool:       cfg.Pool,
		challenges: cfg.Challenges,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// tracingMiddleware starts a server span per request, continuing any
// trace carried by the incoming headers
func tracingMiddleware(cfg *Config) gin.HandlerFunc {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.Propagators != nil {
		opts = append(opts, otelgin.WithPropagators(cfg.Propagators))
	}

	return otelgin.Middleware(name, opts...)
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Challenges
	s.router.GET("/challenge", s.handleListChallenges)
	s.router.GET("/challenge/:id", s.handleGetChallenge)

	// Pool status
	s.router.GET("/pool", s.handlePoolStatus)
}

// SetupWebSocket adds the pool snapshot stream to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandlePoolStream(*gin.Context)
	}); ok {
		s.router.GET("/pool/stream", wsHandler.HandlePoolStream)
	}
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

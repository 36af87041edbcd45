package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/challenge/internal/application/challenge"
	"github.com/aescanero/challenge/internal/application/workers"
	"github.com/aescanero/challenge/internal/config"
	"github.com/aescanero/challenge/internal/telemetry"
	"github.com/aescanero/challenge/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/challenge/pkg/api/grpc"
	"github.com/aescanero/challenge/pkg/api/http"
	"github.com/aescanero/challenge/pkg/api/websocket"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting challenge service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	tracing, err := telemetry.NewTracing(&cfg.Tracing, Version)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// The pool is created once and shared by every request handler
	pool, err := workers.NewPool(workers.Config{
		Name:          cfg.Pool.Name,
		CoreSize:      cfg.Pool.CoreSize,
		MaxSize:       cfg.Pool.MaxSize,
		QueueCapacity: cfg.Pool.QueueCapacity,
		KeepAlive:     cfg.Pool.KeepAlive,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create worker pool", zap.Error(err))
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if _, err := prometheus.RegisterPoolCollector(registry, pool); err != nil {
		logger.Fatal("failed to register pool metrics", zap.Error(err))
	}
	metricsCollector := prometheus.NewCollector(registry)

	challengeService := challenge.NewService(
		challenge.NewCatalog(cfg.Challenge.Count),
		challenge.Config{
			LatencyBase:     cfg.Challenge.LatencyBase,
			LatencyJitter:   cfg.Challenge.LatencyJitter,
			SlowThresholdID: cfg.Challenge.SlowThresholdID,
			SlowDelay:       cfg.Challenge.SlowDelay,
		},
		metricsCollector,
		logger,
		challenge.WithTracerProvider(tracing.Provider()),
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:           cfg.GetHTTPAddr(),
		Pool:           pool,
		Challenges:     challengeService,
		Metrics:        metricsCollector,
		Gatherer:       registry,
		Logger:         logger,
		ServiceName:    cfg.Tracing.ServiceName,
		TracerProvider: tracing.Provider(),
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(pool, cfg.Timeouts.StreamInterval, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Addr:   cfg.GetGRPCAddr(),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	healthMonitor := workers.NewHealthMonitor(pool, cfg.Pool.HealthCheckInterval, logger,
		func(status *workers.HealthStatus) {
			grpcServer.UpdateHealth(status.Healthy)
		})
	healthMonitor.Start()

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("challenge service started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.String("grpc_addr", cfg.GetGRPCAddr()),
		zap.Int("pool_core_size", cfg.Pool.CoreSize),
		zap.Int("pool_max_size", cfg.Pool.MaxSize),
		zap.Int("pool_queue_capacity", cfg.Pool.QueueCapacity))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	healthMonitor.Stop()

	// Cancelling the pool first unblocks handlers stuck in the slow path,
	// so the HTTP server can drain instead of waiting out the timeout.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("challenge service shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}

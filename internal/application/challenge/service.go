package challenge

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/aescanero/challenge/internal/application/challenge"

	// listAllID is the id attribute recorded for list-all requests
	listAllID = -1
)

var (
	// ErrNotFound is returned when no challenge matches the requested id
	ErrNotFound = errors.New("challenge not found")

	// ErrInterrupted is returned when a simulated wait is cut short
	ErrInterrupted = errors.New("request interrupted")
)

// Config holds the simulated latency settings
type Config struct {
	// Every request sleeps LatencyBase plus a uniform share of LatencyJitter.
	LatencyBase   time.Duration
	LatencyJitter time.Duration

	// Ids above SlowThresholdID sleep SlowDelay and then return nothing,
	// emulating a hung downstream dependency.
	SlowThresholdID int
	SlowDelay       time.Duration
}

// Metrics receives slow-path notifications
type Metrics interface {
	RecordSlowRequest()
}

// Service answers challenge queries against a catalog
type Service struct {
	catalog *Catalog
	config  Config
	metrics Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
	random  func() float64
}

// Option configures a Service
type Option func(*Service)

// WithTracerProvider sets the provider used for request spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithRandom replaces the uniform [0,1) source used for latency jitter
func WithRandom(random func() float64) Option {
	return func(s *Service) {
		s.random = random
	}
}

// NewService creates a new challenge service
func NewService(catalog *Catalog, cfg Config, metrics Metrics, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		config:  cfg,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		random:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("challenge service initialized",
		zap.Int("challenges", catalog.Len()),
		zap.Int("slow_threshold_id", cfg.SlowThresholdID),
		zap.Duration("slow_delay", cfg.SlowDelay))

	return s
}

// ListAll returns every challenge after the simulated latency
func (s *Service) ListAll(ctx context.Context) ([]Challenge, error) {
	s.logger.Info("getAllChallenges")

	ctx, span := s.startSpan(ctx, listAllID)
	defer span.End()

	if err := s.simulateWork(ctx); err != nil {
		return nil, s.fail(span, err)
	}

	return s.catalog.All(), nil
}

// GetByID returns the challenges matching id, which is empty when nothing
// matches. Ids above the slow threshold take the slow path first.
func (s *Service) GetByID(ctx context.Context, id int) ([]Challenge, error) {
	s.logger.Info("getChallengeById", zap.Int("id", id))

	ctx, span := s.startSpan(ctx, id)
	defer span.End()

	if err := s.simulateWork(ctx); err != nil {
		return nil, s.fail(span, err)
	}

	if id > s.config.SlowThresholdID {
		if s.metrics != nil {
			s.metrics.RecordSlowRequest()
		}
		if err := sleep(ctx, s.config.SlowDelay); err != nil {
			return nil, s.fail(span, err)
		}
		s.logger.Error("slow and invalid id", zap.Int("id", id))
		return []Challenge{}, nil
	}

	return s.catalog.Find(id), nil
}

func (s *Service) startSpan(ctx context.Context, id int) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "Handle request",
		trace.WithAttributes(attribute.Int("id", id)))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Warn("request aborted", zap.Error(err))
	return err
}

// simulateWork sleeps LatencyBase plus a random share of LatencyJitter
func (s *Service) simulateWork(ctx context.Context) error {
	delay := s.config.LatencyBase + time.Duration(s.random()*float64(s.config.LatencyJitter))
	return sleep(ctx, delay)
}

// sleep waits for d unless ctx ends first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}
}

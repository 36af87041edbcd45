package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically samples the pool and logs its status
type HealthMonitor struct {
	pool      *Pool
	interval  time.Duration
	logger    *zap.Logger
	listeners []func(*HealthStatus)

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	PoolSize      int
	ActiveWorkers int
	IdleWorkers   int
	QueueLength   int
	Saturated     bool
	Healthy       bool
	Timestamp     time.Time
}

// NewHealthMonitor creates a new health monitor. Each listener is called
// with the status after every check.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger, listeners ...func(*HealthStatus)) *HealthMonitor {
	return &HealthMonitor{
		pool:      pool,
		interval:  interval,
		logger:    logger,
		listeners: listeners,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// run is the main health monitoring loop
func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth checks pool health and logs status
func (h *HealthMonitor) checkHealth() {
	status := h.GetStatus()

	h.logger.Info("worker pool health check",
		zap.String("pool", h.pool.Name()),
		zap.Int("size", status.PoolSize),
		zap.Int("active", status.ActiveWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("queued", status.QueueLength),
		zap.Bool("healthy", status.Healthy))

	if status.Saturated {
		h.logger.Warn("worker pool is saturated - new requests are rejected",
			zap.String("pool", h.pool.Name()),
			zap.Int("size", status.PoolSize))
	}

	for _, listener := range h.listeners {
		listener(status)
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	snap := h.pool.Snapshot()
	saturated := snap.Saturated()

	return &HealthStatus{
		PoolSize:      snap.PoolSize,
		ActiveWorkers: snap.ActiveCount,
		IdleWorkers:   snap.PoolSize - snap.ActiveCount,
		QueueLength:   snap.QueueLength,
		Saturated:     saturated,
		Healthy:       !saturated,
		Timestamp:     snap.Timestamp,
	}
}

// IsHealthy returns true if the worker pool can still accept work
func (h *HealthMonitor) IsHealthy() bool {
	status := h.GetStatus()
	return status.Healthy
}

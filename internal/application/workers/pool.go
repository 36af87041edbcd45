package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of work run by the pool. The context is the pool's
// lifetime context and is only cancelled by Shutdown.
type Task func(ctx context.Context) (interface{}, error)

// Config describes the shape of a pool
type Config struct {
	Name          string
	CoreSize      int
	MaxSize       int
	QueueCapacity int
	KeepAlive     time.Duration
}

// Pool is a bounded worker pool. It keeps up to CoreSize workers, queues
// up to QueueCapacity tasks once those are busy, and only grows towards
// MaxSize when the queue is full. Workers above CoreSize retire after
// KeepAlive without work.
type Pool struct {
	name      string
	coreSize  int
	maxSize   int
	keepAlive time.Duration
	logger    *zap.Logger

	queue chan *job

	mu        sync.Mutex
	workers   int
	active    int
	largest   int
	submitted int64
	completed int64
	rejected  int64
	closed    bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	task   Task
	future *Future
}

// Snapshot is a point-in-time view of the pool counters
type Snapshot struct {
	Name               string    `json:"name"`
	CoreSize           int       `json:"core_size"`
	MaxSize            int       `json:"max_size"`
	PoolSize           int       `json:"pool_size"`
	ActiveCount        int       `json:"active_count"`
	LargestPoolSize    int       `json:"largest_pool_size"`
	TaskCount          int64     `json:"task_count"`
	CompletedTaskCount int64     `json:"completed_task_count"`
	RejectedCount      int64     `json:"rejected_count"`
	QueueLength        int       `json:"queue_length"`
	QueueCapacity      int       `json:"queue_capacity"`
	Timestamp          time.Time `json:"timestamp"`
}

// Saturated reports whether the pool was at its maximum size with a full
// queue when the snapshot was taken.
func (s Snapshot) Saturated() bool {
	return s.PoolSize >= s.MaxSize && s.QueueLength >= s.QueueCapacity
}

// NewPool creates a new worker pool. Workers are started lazily by Submit.
func NewPool(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.CoreSize < 1 {
		return nil, fmt.Errorf("core size must be at least 1, got %d", cfg.CoreSize)
	}
	if cfg.MaxSize < cfg.CoreSize {
		return nil, fmt.Errorf("max size %d is smaller than core size %d", cfg.MaxSize, cfg.CoreSize)
	}
	if cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("queue capacity must be at least 1, got %d", cfg.QueueCapacity)
	}
	if cfg.KeepAlive <= 0 {
		return nil, fmt.Errorf("keep-alive must be positive, got %v", cfg.KeepAlive)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		name:      cfg.Name,
		coreSize:  cfg.CoreSize,
		maxSize:   cfg.MaxSize,
		keepAlive: cfg.KeepAlive,
		logger:    logger,
		queue:     make(chan *job, cfg.QueueCapacity),
		ctx:       ctx,
		cancel:    cancel,
	}

	logger.Info("worker pool created",
		zap.String("pool", cfg.Name),
		zap.Int("core_size", cfg.CoreSize),
		zap.Int("max_size", cfg.MaxSize),
		zap.Int("queue_capacity", cfg.QueueCapacity),
		zap.Duration("keep_alive", cfg.KeepAlive))

	return pool, nil
}

// Name returns the pool name
func (p *Pool) Name() string {
	return p.name
}

// Submit hands a task to the pool and returns its future. It never blocks:
// when neither a worker nor a queue slot is available it fails with
// ErrPoolSaturated.
func (p *Pool) Submit(task Task) (*Future, error) {
	if task == nil {
		return nil, fmt.Errorf("task is nil")
	}
	j := &job{task: task, future: newFuture()}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	if p.workers < p.coreSize {
		p.startWorkerLocked(j)
		return j.future, nil
	}

	select {
	case p.queue <- j:
		p.submitted++
		return j.future, nil
	default:
	}

	if p.workers < p.maxSize {
		p.startWorkerLocked(j)
		return j.future, nil
	}

	p.rejected++
	return nil, ErrPoolSaturated
}

// Snapshot returns the current counters. It only holds the pool lock for
// the copy and never waits for running tasks.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Name:               p.name,
		CoreSize:           p.coreSize,
		MaxSize:            p.maxSize,
		PoolSize:           p.workers,
		ActiveCount:        p.active,
		LargestPoolSize:    p.largest,
		TaskCount:          p.submitted,
		CompletedTaskCount: p.completed,
		RejectedCount:      p.rejected,
		QueueLength:        len(p.queue),
		QueueCapacity:      cap(p.queue),
		Timestamp:          time.Now(),
	}
}

// Shutdown stops accepting tasks, cancels the task context and waits for
// the workers to exit. Tasks still queued afterwards fail with ErrPoolClosed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("shutting down worker pool", zap.String("pool", p.name))

	p.cancel()

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		p.logger.Info("worker pool shut down complete", zap.String("pool", p.name))
	case <-ctx.Done():
		err = fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}

	if dropped := p.drain(); dropped > 0 {
		p.logger.Warn("discarded queued tasks",
			zap.String("pool", p.name),
			zap.Int("count", dropped))
	}

	return err
}

// startWorkerLocked starts a worker whose first task is j. Caller holds p.mu.
func (p *Pool) startWorkerLocked(j *job) {
	p.submitted++
	p.workers++
	if p.workers > p.largest {
		p.largest = p.workers
	}

	p.wg.Add(1)
	go p.runWorker(j)
}

// runWorker is the main worker loop
func (p *Pool) runWorker(first *job) {
	defer p.wg.Done()

	for j := first; j != nil; j = p.next() {
		p.execute(j)
	}
}

// next waits for queued work. A worker above the core size that stays idle
// for the keep-alive period retires and next returns nil.
func (p *Pool) next() *job {
	timer := time.NewTimer(p.keepAlive)
	defer timer.Stop()

	for {
		select {
		case j := <-p.queue:
			return j
		case <-p.ctx.Done():
			p.mu.Lock()
			p.workers--
			p.mu.Unlock()
			return nil
		case <-timer.C:
			p.mu.Lock()
			if p.workers > p.coreSize {
				// Submit enqueues under p.mu, so nothing can slip in after this check.
				select {
				case j := <-p.queue:
					p.mu.Unlock()
					return j
				default:
				}
				p.workers--
				p.mu.Unlock()
				p.logger.Debug("idle worker retired", zap.String("pool", p.name))
				return nil
			}
			p.mu.Unlock()
			timer.Reset(p.keepAlive)
		}
	}
}

// execute runs a single task and completes its future
func (p *Pool) execute(j *job) {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()

	result, err := p.invoke(j.task)

	p.mu.Lock()
	p.active--
	p.completed++
	p.mu.Unlock()

	j.future.complete(result, err)
}

func (p *Pool) invoke(task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				zap.String("pool", p.name),
				zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	return task(p.ctx)
}

// drain fails every task left in the queue
func (p *Pool) drain() int {
	dropped := 0
	for {
		select {
		case j := <-p.queue:
			j.future.complete(nil, ErrPoolClosed)
			dropped++
		default:
			return dropped
		}
	}
}

package workers

var (
	// ErrPoolSaturated is returned by Submit when every worker up to the
	// maximum pool size is busy and the backlog queue is full.
	ErrPoolSaturated = &PoolError{"pool saturated"}

	// ErrPoolClosed is returned when submitting a task to a pool that has been shut down.
	ErrPoolClosed = &PoolError{"pool closed"}

	// ErrTaskPanicked is delivered on a task's future when the task panicked.
	ErrTaskPanicked = &PoolError{"task panicked"}
)

// PoolError represents an error specific to the worker pool.
type PoolError struct {
	msg string
}

// Error implements the error interface for PoolError.
func (e *PoolError) Error() string { return e.msg }

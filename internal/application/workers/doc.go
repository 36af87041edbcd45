// Package workers implements the bounded worker pool that runs request
// handlers off the HTTP goroutines.
//
// The pool follows the classic executor shape:
//   - Up to CoreSize workers are started on demand and never retire
//   - Once they are busy, tasks wait in a queue of QueueCapacity slots
//   - Only a full queue makes the pool grow, up to MaxSize workers
//   - With every worker busy and the queue full, Submit fails with ErrPoolSaturated
//
// Snapshot exposes the live counters for metrics; the health monitor
// samples it on a ticker and logs the status.
package workers

// Package queue provides the in-memory hand-off between event capture and the
// background processor. The queue is deliberately not persisted: delivery is
// at-least-once while the process runs, backed by idempotent statements.
package queue

import "sync"

// Job is a single remote statement ready for execution. Once enqueued a job
// carries no table or partition identity, only the statement text.
type Job struct {
	Statement string
}

// Queue is an unbounded FIFO safe for arbitrary concurrent producers racing
// one consumer. Push never blocks; TryPop never blocks.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
	head int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a job to the tail of the queue.
func (q *Queue) Push(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest job, or ok=false when the queue is
// empty.
func (q *Queue) TryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.jobs) {
		return Job{}, false
	}

	job := q.jobs[q.head]
	q.jobs[q.head] = Job{} // release the statement for GC
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head > 32 && q.head*2 >= len(q.jobs) {
		q.jobs = append(q.jobs[:0], q.jobs[q.head:]...)
		q.head = 0
	}

	return job, true
}

// Len returns the number of queued jobs (for metrics and shutdown reporting).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) - q.head
}

package notify

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Queue runs jobs on a single worker. Submissions never block: when the
// queue is full the job is dropped.
type Queue struct {
	mu      sync.RWMutex
	jobs    chan func()
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	logger  zerolog.Logger
}

// NewQueue starts a worker with room for size pending jobs
func NewQueue(size int, logger zerolog.Logger) *Queue {
	if size <= 0 {
		size = 16
	}
	q := &Queue{
		jobs:   make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		q.safe(job)
	}
}

func (q *Queue) safe(job func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Interface("panic", r).Msg("notification job panicked")
		}
	}()
	job()
}

// Submit enqueues job and reports whether it was accepted
func (q *Queue) Submit(job func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns how many jobs were rejected because the queue was full
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting jobs and waits for pending ones to finish
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}

// AsyncNotifier forwards to a Notifier through a Queue
type AsyncNotifier struct {
	next  Notifier
	queue *Queue
}

func NewAsyncNotifier(next Notifier, q *Queue) *AsyncNotifier {
	return &AsyncNotifier{next: next, queue: q}
}

func (a *AsyncNotifier) ShowRecording(active bool) {
	a.queue.Submit(func() { a.next.ShowRecording(active) })
}

func (a *AsyncNotifier) ShowTranscriptionComplete(text string) {
	a.queue.Submit(func() { a.next.ShowTranscriptionComplete(text) })
}

func (a *AsyncNotifier) CancelRecording() {
	a.queue.Submit(a.next.CancelRecording)
}

func (a *AsyncNotifier) CancelAll() {
	a.queue.Submit(a.next.CancelAll)
}

// AsyncHaptics forwards to a Haptics through a Queue
type AsyncHaptics struct {
	next  Haptics
	queue *Queue
}

func NewAsyncHaptics(next Haptics, q *Queue) *AsyncHaptics {
	return &AsyncHaptics{next: next, queue: q}
}

func (a *AsyncHaptics) Trigger(p Pattern) {
	a.queue.Submit(func() { a.next.Trigger(p) })
}

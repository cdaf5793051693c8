package persist

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDelay is the batching window used when a scheduler is created
// with a non-positive delay.
const DefaultDelay = 120 * time.Millisecond

// maxRetryDelay caps the back-off between retries of a failing write.
const maxRetryDelay = 5 * time.Second

// WriteFunc snapshots the owner's state and writes it to disk.
// It is called without any scheduler lock held.
type WriteFunc func() error

// Scheduler batches write-back requests. The first Schedule call after a
// write arms a timer; every Schedule call that arrives before it fires joins
// the same batch. A failed write keeps the scheduler dirty and is retried on
// the next cycle. In-memory state is never rolled back.
type Scheduler struct {
	name   string
	delay  time.Duration
	write  WriteFunc
	logger *slog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	dirty    bool
	closed   bool
	failures int

	// writeMu serializes write calls between the timer goroutine and
	// explicit Flush/Close callers.
	writeMu sync.Mutex
	writes  atomic.Int64
}

// NewScheduler creates a scheduler. name only appears in logs and errors.
func NewScheduler(name string, delay time.Duration, write WriteFunc, logger *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		name:   name,
		delay:  delay,
		write:  write,
		logger: logger.With("scheduler", name),
	}
}

// Schedule marks the state dirty and arms the batch timer if needed.
// After Close the request is remembered but only written by an explicit Flush.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	if s.closed || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Pending reports whether there are changes not yet written to disk.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Writes returns the number of successful writes performed so far.
func (s *Scheduler) Writes() int64 {
	return s.writes.Load()
}

// Flush writes the current state immediately if it is dirty.
func (s *Scheduler) Flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.write(); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.failures++
		s.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, s.name, err)
	}

	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
	s.writes.Add(1)
	return nil
}

// Close stops the timer and performs a final synchronous flush.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.Flush()
}

// fire runs on the timer goroutine.
func (s *Scheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	err := s.Flush()
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	retry := s.retryDelay()
	s.logger.Warn("write-back failed, will retry",
		"error", err,
		"failures", s.failures,
		"retry_in", retry,
	)
	if !s.closed && s.timer == nil {
		s.timer = time.AfterFunc(retry, s.fire)
	}
}

// retryDelay doubles the batch window per consecutive failure. Caller holds mu.
func (s *Scheduler) retryDelay() time.Duration {
	d := s.delay
	for i := 1; i < s.failures && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// Package scheduler runs a job on a fixed cadence in one background
// goroutine. The loop survives job failures: an error switches the next
// delay to a short backoff instead of the regular interval, and the
// loop keeps going.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultErrorBackoff is the retry delay after a failed run.
	DefaultErrorBackoff = time.Minute
	// DefaultStopTimeout bounds how long Stop waits for the loop to
	// exit before giving up on it.
	DefaultStopTimeout = 5 * time.Second
)

// Job is one scheduled run. The context it receives is never cancelled
// by Stop, so an in-flight run always completes.
type Job func(ctx context.Context) error

// Scheduler owns a single background loop. Start and Stop move it
// between stopped and running; both are idempotent.
type Scheduler struct {
	job      Job
	backoff  time.Duration
	stopWait time.Duration

	mu       sync.Mutex
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option adjusts scheduler timing.
type Option func(*Scheduler)

// WithErrorBackoff sets the delay before retrying after a failed run.
func WithErrorBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithStopTimeout sets how long Stop waits for the loop to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.stopWait = d
		}
	}
}

// New creates a stopped scheduler that will run job every interval.
func New(job Job, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:      job,
		interval: interval,
		backoff:  DefaultErrorBackoff,
		stopWait: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the current cadence.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the cadence. A sleep already in progress finishes
// at the old cadence; the new one applies from the next run.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Start spawns the loop. Calling it on a running scheduler is a no-op,
// so two starts never produce two loops.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)
	slog.Info("scheduler started", "interval", s.interval)
}

// Stop signals the loop to exit and waits up to the stop timeout for it
// to do so. A loop stuck in a slow run is abandoned with a warning
// rather than blocking shutdown; it cannot start another run once the
// signal is set.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(s.stopWait):
		slog.Warn("scheduler loop did not stop within the wait", "timeout", s.stopWait)
	}
	slog.Info("scheduler stopped")
}

// loop runs the job, sleeps, and repeats until cancelled. The first run
// happens immediately on start.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay := s.Interval()
		// Stopping must not cancel a run already in flight; it only
		// prevents the next one.
		if err := s.job(context.WithoutCancel(ctx)); err != nil {
			slog.Error("scheduled run failed", "error", err, "retry_in", s.backoff)
			delay = s.backoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

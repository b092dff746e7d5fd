package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"botfoundation/models"
	"botfoundation/services"
)

const component = "scheduler"

// Ticker delivers periodic ticks until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker for a job period
type TickerFactory func(period time.Duration) Ticker

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

// NewRealTicker is the TickerFactory backed by time.Ticker
func NewRealTicker(period time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(period)}
}

// JobFunc is the body of a periodic job
type JobFunc func(ctx context.Context) error

// TaskWrapper decorates every firing, e.g. with panic recovery and alerting
type TaskWrapper func(name string, fn JobFunc) JobFunc

// Job is a periodic task owned by the scheduler
type Job struct {
	Name   string
	Period time.Duration
	Run    JobFunc

	mu      sync.Mutex
	lastRun time.Time
	running atomic.Bool
	fired   atomic.Int64
	skipped atomic.Int64
}

// LastRun returns when the latest firing started
func (j *Job) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

func (j *Job) Running() bool  { return j.running.Load() }
func (j *Job) Fired() int64   { return j.fired.Load() }
func (j *Job) Skipped() int64 { return j.skipped.Load() }

// Scheduler runs jobs on independent tickers. A tick that arrives while the
// previous firing of the same job is still running is skipped, never queued.
type Scheduler struct {
	audit     services.AuditLogger
	newTicker TickerFactory
	wrap      TaskWrapper
	now       func() time.Time

	mu      sync.Mutex
	jobs    []*Job
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(audit services.AuditLogger) *Scheduler {
	return &Scheduler{
		audit:     audit,
		newTicker: NewRealTicker,
		wrap:      func(name string, fn JobFunc) JobFunc { return fn },
		now:       time.Now,
	}
}

func (s *Scheduler) WithTickerFactory(factory TickerFactory) *Scheduler {
	s.newTicker = factory
	return s
}

func (s *Scheduler) WithTaskWrapper(wrap TaskWrapper) *Scheduler {
	s.wrap = wrap
	return s
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// AddJob registers a job. Jobs must be added before Start.
func (s *Scheduler) AddJob(job *Job) error {
	if job == nil || job.Run == nil {
		return fmt.Errorf("job must have a run function")
	}
	if job.Name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if job.Period <= 0 {
		return fmt.Errorf("job %s period must be positive, got %s", job.Name, job.Period)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("cannot add job %s after the scheduler started", job.Name)
	}
	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("job %s already registered", job.Name)
		}
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Start launches every job. Only the first call has any effect; it reports
// whether this call started the scheduler.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return false
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.record(models.AuditLevelInfo, "Scheduler started", map[string]any{"jobs": len(s.jobs)})
	return true
}

// Stop cancels all jobs and waits for in-flight firings to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.record(models.AuditLevelInfo, "Scheduler stopped", nil)
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	ticker := s.newTicker(job.Period)
	defer ticker.Stop()

	run := s.wrap(job.Name, job.Run)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.fire(ctx, job, run)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, job *Job, run JobFunc) {
	if ctx.Err() != nil {
		return
	}
	if !job.running.CompareAndSwap(false, true) {
		job.skipped.Add(1)
		s.record(models.AuditLevelWarn, "Skipped tick, previous firing still running", map[string]any{"job": job.Name})
		return
	}

	job.mu.Lock()
	job.lastRun = s.now()
	job.mu.Unlock()
	job.fired.Add(1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer job.running.Store(false)

		if err := run(ctx); err != nil {
			s.record(models.AuditLevelError, "Job firing failed", map[string]any{"job": job.Name, "error": err})
			return
		}
		s.record(models.AuditLevelDebug, "Job firing completed", map[string]any{"job": job.Name})
	}()
}

func (s *Scheduler) record(level models.AuditLevel, message string, fields map[string]any) {
	s.audit.Record(models.AuditRecord{
		Level:     level,
		Component: component,
		Message:   message,
		Fields:    fields,
	})
}

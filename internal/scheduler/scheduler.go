// Package scheduler originates time-based work. Jobs are registered at
// startup and evaluated on every tick; due invocations run on the job
// worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/pkg/worker"
)

// DefaultTick is how often Run evaluates due jobs.
const DefaultTick = time.Second

// Action is the work a job performs.
type Action func(ctx context.Context) error

// Submitter runs tasks off the scheduler goroutine. *worker.Pool
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task worker.Task) error
}

// JobOption configures a job.
type JobOption func(*job)

// RunOnStart makes the job due on the first evaluation instead of waiting
// for its first cadence slot.
func RunOnStart() JobOption {
	return func(j *job) { j.runOnStart = true }
}

type job struct {
	name       string
	cadence    Cadence
	action     Action
	runOnStart bool

	next    time.Time
	armed   bool
	running atomic.Bool
}

// JobStatus is a read-only view of a registered job.
type JobStatus struct {
	Name    string    `json:"name"`
	Cadence string    `json:"cadence"`
	NextRun time.Time `json:"next_run,omitempty"`
	Running bool      `json:"running"`
}

// Scheduler evaluates registered jobs against the clock.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*job

	submit Submitter
	tick   time.Duration
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick overrides DefaultTick.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithClock overrides the clock Run uses.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler dispatching to submit.
func New(submit Submitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		submit: submit,
		tick:   DefaultTick,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job. Names must be unique.
func (s *Scheduler) AddJob(name string, cadence Cadence, action Action, opts ...JobOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %q already registered", name)
		}
	}
	j := &job{name: name, cadence: cadence, action: action}
	for _, opt := range opts {
		opt(j)
	}
	s.jobs = append(s.jobs, j)
	logger.Info("Scheduled job registered",
		zap.String("job", name),
		zap.String("cadence", cadence.String()),
		zap.Bool("run_on_start", j.runOnStart),
	)
	return nil
}

// Run evaluates due jobs every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	logger.Info("Scheduler started", zap.Duration("tick", s.tick), zap.Int("jobs", len(s.Jobs())))
	s.RunDue(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx, s.now())
		}
	}
}

// RunDue dispatches every job due at now and returns their names. A job
// whose previous invocation is still running skips this slot.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) []string {
	now = now.UTC()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.armed {
			j.armed = true
			if !j.runOnStart {
				j.next = j.cadence.Next(now)
				continue
			}
			j.next = now
		}
		if now.Before(j.next) {
			continue
		}
		j.next = j.cadence.Next(now)
		due = append(due, j)
	}
	s.mu.Unlock()

	var dispatched []string
	for _, j := range due {
		if !j.running.CompareAndSwap(false, true) {
			logger.Warn("Scheduled job still running, skipping slot", zap.String("job", j.name))
			continue
		}
		if err := s.submit.Submit(ctx, func(ctx context.Context) {
			defer j.running.Store(false)
			s.execute(ctx, j)
		}); err != nil {
			j.running.Store(false)
			logger.Error("Failed to dispatch scheduled job", zap.String("job", j.name), zap.Error(err))
			continue
		}
		dispatched = append(dispatched, j.name)
	}
	return dispatched
}

// Trigger runs the named job synchronously in the calling goroutine,
// honoring the no-overlap rule. The job's cadence is unaffected.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("job %q not registered", name)
	}
	if !target.running.CompareAndSwap(false, true) {
		return fmt.Errorf("job %q is already running", name)
	}
	defer target.running.Store(false)
	return s.execute(ctx, target)
}

// Jobs lists registered jobs by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{
			Name:    j.name,
			Cadence: j.cadence.String(),
			NextRun: j.next,
			Running: j.running.Load(),
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %q panicked: %v", j.name, rec)
			logger.Error("Scheduled job panicked",
				zap.String("job", j.name),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	if err = j.action(ctx); err != nil {
		logger.Error("Scheduled job failed",
			zap.String("job", j.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	logger.Debug("Scheduled job completed",
		zap.String("job", j.name),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Package worker provides the goroutine pools every background task runs on.
//
// Components never start naked goroutines: scheduled job invocations go to
// the Jobs pool, long-lived service loops (the scheduler ticker, the HTTP
// listener) go to the Service pool as detached tasks bound to the service
// lifecycle context.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// Pools is the worker pool collection.
type Pools struct {
	Jobs    *Pool
	Service *Pool

	// serviceCtx is the service lifecycle context for detached tasks
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains worker pool configuration.
type PoolConfig struct {
	JobPoolSize     int
	ServicePoolSize int
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		JobPoolSize:     16,
		ServicePoolSize: 4,
	}
}

// NewPools creates the worker pool collection.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	jobsAnts, err := ants.NewPool(cfg.JobPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	// Service loops live for the whole process; never purge them.
	serviceAnts, err := ants.NewPool(cfg.ServicePoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(true),
		ants.WithDisablePurge(true),
	)
	if err != nil {
		jobsAnts.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		Jobs:          &Pool{pool: jobsAnts, name: "jobs"},
		Service:       &Pool{pool: serviceAnts, name: "service"},
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit submits a context-aware task.
// If the context is already cancelled, returns ctx.Err() without submitting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := p.pool.Submit(func() {
		// The context may have been cancelled while the task was queued.
		select {
		case <-ctx.Done():
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Name returns the pool name used in logs and metrics.
func (p *Pool) Name() string {
	return p.name
}

// SubmitDetached submits a long-lived task to the Service pool. The task
// receives the service lifecycle context, which is cancelled by Shutdown.
func (p *Pools) SubmitDetached(task Task) error {
	return p.Service.Submit(p.serviceCtx, task)
}

// ServiceContext returns the lifecycle context handed to detached tasks.
func (p *Pools) ServiceContext() context.Context {
	return p.serviceCtx
}

// Shutdown cancels the service context, then waits for running tasks up to
// the given timeout per pool.
func (p *Pools) Shutdown(timeout time.Duration) {
	p.serviceCancel()

	if err := p.Service.pool.ReleaseTimeout(timeout); err != nil {
		logger.Warn("Service pool shutdown timeout", zap.Error(err))
	}
	if err := p.Jobs.pool.ReleaseTimeout(timeout); err != nil {
		logger.Warn("Jobs pool shutdown timeout", zap.Error(err))
	}
}

// Metrics returns pool metrics for observability.
func (p *Pools) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"jobs": map[string]int{
			"running": p.Jobs.pool.Running(),
			"free":    p.Jobs.pool.Free(),
			"cap":     p.Jobs.pool.Cap(),
		},
		"service": map[string]int{
			"running": p.Service.pool.Running(),
			"free":    p.Service.pool.Free(),
			"cap":     p.Service.pool.Cap(),
		},
	}
}

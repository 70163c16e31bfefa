// Package app is the composition root. Bootstrap stays orchestration-only:
// modules build the services, this package wires them together.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/app/modules"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/jobs"
	"keeper.dev/keeper/internal/scheduler"
)

// Application holds composed application dependencies.
type Application struct {
	Config    *config.Config
	Router    *gin.Engine
	Infra     *modules.Infrastructure
	Scheduler *scheduler.Scheduler
	Modules   []modules.Module
	// Deps exposes the composed services to non-HTTP entry points.
	Deps handlers.ServerDeps
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	engagement, err := modules.NewEngagementModule(infra)
	if err != nil {
		infra.Close(cfg.Server.ShutdownTimeout)
		return nil, fmt.Errorf("init engagement module: %w", err)
	}
	publishing, err := modules.NewPublishingModule(infra)
	if err != nil {
		infra.Close(cfg.Server.ShutdownTimeout)
		return nil, fmt.Errorf("init publishing module: %w", err)
	}

	// Registration order is handler order within an event type: state
	// changes first, user notices last.
	allModules := []modules.Module{
		engagement,
		modules.NewAccessModule(infra),
		publishing,
		modules.NewGovernanceModule(infra),
	}
	for _, mod := range allModules {
		if err := mod.RegisterHandlers(infra.Router); err != nil {
			infra.Close(cfg.Server.ShutdownTimeout)
			return nil, fmt.Errorf("register %s handlers: %w", mod.Name(), err)
		}
	}

	sched := scheduler.New(infra.Pools.Jobs, scheduler.WithTick(cfg.Scheduler.Tick))
	var workers jobs.Workers
	for _, mod := range allModules {
		mod.ContributeWorkers(&workers)
	}
	if err := jobs.Register(sched, jobs.Schedule{
		SubscriptionHour:   cfg.Scheduler.SubscriptionSweepHour,
		SubscriptionMinute: cfg.Scheduler.SubscriptionSweepMinute,
		JoinInterval:       cfg.Scheduler.JoinSweepInterval,
		PostInterval:       cfg.Scheduler.PostSweepInterval,
		MissionInterval:    cfg.Scheduler.MissionTimeoutInterval,
	}, workers); err != nil {
		infra.Close(cfg.Server.ShutdownTimeout)
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	serverDeps := modules.NewServerDeps(cfg, infra, sched, allModules)
	server := handlers.NewServer(serverDeps)

	return &Application{
		Config:    cfg,
		Router:    newRouter(server),
		Infra:     infra,
		Scheduler: sched,
		Modules:   allModules,
		Deps:      serverDeps,
	}, nil
}

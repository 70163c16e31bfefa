package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// Start starts the background scheduler on the service pool. It stops when
// Shutdown cancels the service context.
func (a *Application) Start(context.Context) error {
	if a.Infra == nil || a.Infra.Pools == nil || a.Scheduler == nil {
		return fmt.Errorf("application is not bootstrapped")
	}
	if err := a.Infra.Pools.SubmitDetached(a.Scheduler.Run); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	logger.Info("Scheduler submitted, sweeps will now run")
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.Infra != nil {
		var timeout time.Duration
		if a.Config != nil {
			timeout = a.Config.Server.ShutdownTimeout
		}
		a.Infra.Close(timeout)
	}
}

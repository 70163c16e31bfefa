// Package modules contains the domain-oriented dependency units of the
// composition root.
package modules

import (
	"context"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/jobs"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// RegisterHandlers attaches the module's event handlers to the router.
	RegisterHandlers(domain.Registrar) error

	// ContributeWorkers fills in the scheduled sweeps the module owns.
	ContributeWorkers(*jobs.Workers)

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

package modules

import (
	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/api/middleware"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/scheduler"
)

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(cfg *config.Config, infra *Infrastructure, sched *scheduler.Scheduler, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Store: infra.Store,
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte(cfg.Security.AdminJWTKey),
			Issuer:     cfg.Security.TokenIssuer,
			ExpiresIn:  cfg.Security.AdminTokenTTL,
		},
		Scheduler: sched,
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}

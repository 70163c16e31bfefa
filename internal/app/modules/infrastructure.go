package modules

import (
	"context"
	"fmt"
	"time"

	"keeper.dev/keeper/internal/abuse"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/governance/audit"
	"keeper.dev/keeper/internal/infrastructure"
	"keeper.dev/keeper/internal/notification"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/pkg/worker"
	"keeper.dev/keeper/internal/repository"
	"keeper.dev/keeper/internal/repository/memory"
	"keeper.dev/keeper/internal/repository/postgres"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	Store       repository.Store
	Pools       *worker.Pools
	Router      *domain.EventRouter
	AuditLogger *audit.Logger
	Gateway     notification.Gateway
	Gate        *abuse.Gate
}

// NewInfrastructure opens the store, starts the worker pools and builds the
// shared event router.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	store, err := newStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	gateway, err := newGateway(cfg.Gateway)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		JobPoolSize:     cfg.Worker.JobPoolSize,
		ServicePoolSize: cfg.Worker.ServicePoolSize,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	auditLogger := audit.NewLogger(store)
	router := domain.NewEventRouter(
		domain.WithAuditSink(auditLogger),
		domain.WithMaxChainDepth(cfg.Router.MaxChainDepth),
	)

	return &Infrastructure{
		Config:      cfg,
		Store:       store,
		Pools:       pools,
		Router:      router,
		AuditLogger: auditLogger,
		Gateway:     gateway,
		Gate: abuse.NewGate(abuse.Config{
			Limit:    cfg.Abuse.Limit,
			Window:   cfg.Abuse.Window,
			Cooldown: cfg.Abuse.Cooldown,
		}),
	}, nil
}

func newStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := infrastructure.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := postgres.New(pool)
		// Dev-mode: apply the embedded schema on boot.
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}
		return store, nil
	case config.DriverMemory, "":
		logger.Warn("Using in-memory store; state is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newGateway(cfg config.GatewayConfig) (notification.Gateway, error) {
	switch cfg.Kind {
	case config.GatewayHTTP:
		return notification.NewHTTPGateway(notification.HTTPGatewayConfig{
			BaseURL:   cfg.BaseURL,
			AuthToken: cfg.AuthToken,
			Timeout:   cfg.Timeout,
		})
	case config.GatewayLog, "":
		return notification.LogGateway{}, nil
	default:
		return nil, fmt.Errorf("unknown gateway kind %q", cfg.Kind)
	}
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close(timeout time.Duration) {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown(timeout)
	}
	if i.Store != nil {
		i.Store.Close()
	}
}

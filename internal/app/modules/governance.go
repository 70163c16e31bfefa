package modules

import (
	"context"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/jobs"
	"keeper.dev/keeper/internal/notification"
	"keeper.dev/keeper/internal/usecase"
)

// GovernanceModule owns the cross-cutting controls: the abuse gate on
// ingest, user notices and audit retention.
type GovernanceModule struct {
	infra    *Infrastructure
	ingest   *usecase.IngestInteractionUseCase
	triggers *notification.Triggers
}

func NewGovernanceModule(infra *Infrastructure) *GovernanceModule {
	return &GovernanceModule{
		infra:    infra,
		ingest:   usecase.NewIngestInteractionUseCase(infra.Gate, infra.Router),
		triggers: notification.NewTriggers(infra.Gateway),
	}
}

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Ingest = m.ingest
	deps.Audit = m.infra.AuditLogger
}

func (m *GovernanceModule) RegisterHandlers(r domain.Registrar) error {
	m.triggers.Register(r)
	return nil
}

func (m *GovernanceModule) ContributeWorkers(w *jobs.Workers) {
	w.AuditRetention = jobs.NewAuditRetentionWorker(m.infra.AuditLogger, m.infra.Config.Audit.Retention)
	w.AbuseCompaction = jobs.NewAbuseCompactionWorker(m.infra.Gate)
}

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }

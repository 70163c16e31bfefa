package modules

import (
	"context"

	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/jobs"
)

// AccessModule owns paid access: plans, invite tokens, subscriptions and
// join-request admission.
type AccessModule struct {
	access     *access.Service
	admissions *access.Admissions
}

func NewAccessModule(infra *Infrastructure) *AccessModule {
	cfg := infra.Config.Access
	return &AccessModule{
		access: access.NewService(infra.Store, infra.Router, infra.Gateway, access.Config{
			PaidChannelID: cfg.PaidChannelID,
			ReminderDays:  cfg.ReminderDays,
			TokenValidity: cfg.TokenValidity,
		}),
		admissions: access.NewAdmissions(infra.Store, infra.Router, infra.Gateway, cfg.JoinDelay),
	}
}

func (m *AccessModule) Name() string { return "access" }

func (m *AccessModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Access = m.access
	deps.Admissions = m.admissions
}

// RegisterHandlers is a no-op: access reacts to sweeps and API calls, not
// to routed events.
func (m *AccessModule) RegisterHandlers(domain.Registrar) error { return nil }

func (m *AccessModule) ContributeWorkers(w *jobs.Workers) {
	w.Subscriptions = jobs.NewSubscriptionSweepWorker(m.access)
	w.JoinRequests = jobs.NewJoinRequestSweepWorker(m.admissions)
}

func (m *AccessModule) Shutdown(context.Context) error { return nil }

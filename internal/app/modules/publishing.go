package modules

import (
	"context"
	"fmt"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/jobs"
	"keeper.dev/keeper/internal/publishing"
)

// PublishingModule owns scheduled posts and event-driven content rules.
type PublishingModule struct {
	publishing *publishing.Service
	rules      []publishing.Rule
}

// NewPublishingModule parses the configured content rules.
func NewPublishingModule(infra *Infrastructure) (*PublishingModule, error) {
	rules, err := contentRules(infra.Config.Publishing.Rules)
	if err != nil {
		return nil, err
	}
	return &PublishingModule{
		publishing: publishing.NewService(infra.Store, infra.Router, infra.Gateway, infra.Config.Publishing.MaxAttempts),
		rules:      rules,
	}, nil
}

func contentRules(cfgs []config.ContentRuleConfig) ([]publishing.Rule, error) {
	rules := make([]publishing.Rule, 0, len(cfgs))
	for i, rc := range cfgs {
		event, match, err := publishing.ParseTrigger(rc.Trigger)
		if err != nil {
			return nil, fmt.Errorf("publishing.rules[%d]: %w", i, err)
		}
		rules = append(rules, publishing.Rule{
			Event:     event,
			Match:     match,
			ChannelID: rc.ChannelID,
			Content:   rc.Content,
		})
	}
	return rules, nil
}

func (m *PublishingModule) Name() string { return "publishing" }

func (m *PublishingModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Publishing = m.publishing
}

func (m *PublishingModule) RegisterHandlers(r domain.Registrar) error {
	return m.publishing.RegisterRules(r, m.rules)
}

func (m *PublishingModule) ContributeWorkers(w *jobs.Workers) {
	w.Posts = jobs.NewPostSweepWorker(m.publishing)
}

func (m *PublishingModule) Shutdown(context.Context) error { return nil }

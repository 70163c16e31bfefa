package modules

import (
	"context"
	"fmt"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/gamification"
	"keeper.dev/keeper/internal/jobs"
	"keeper.dev/keeper/internal/mission"
	"keeper.dev/keeper/internal/persona"
)

// EngagementModule owns the persona, gamification and mission services.
// They depend on each other for rewards, so they are composed together.
type EngagementModule struct {
	persona      *persona.Service
	gamification *gamification.Service
	missions     *mission.Service
}

// NewEngagementModule loads the persona table and mission catalog and
// builds the services.
func NewEngagementModule(infra *Infrastructure) (*EngagementModule, error) {
	cfg := infra.Config

	table, err := persona.LoadTable(cfg.Catalog.PersonaPath)
	if err != nil {
		return nil, fmt.Errorf("load persona table: %w", err)
	}
	catalog, err := mission.LoadCatalog(cfg.Catalog.MissionsPath)
	if err != nil {
		return nil, fmt.Errorf("load mission catalog: %w", err)
	}

	levels := make([]gamification.Level, 0, len(cfg.Gamification.Levels))
	for _, l := range cfg.Gamification.Levels {
		levels = append(levels, gamification.Level{Name: l.Name, Points: l.Points})
	}
	if err := gamification.ValidateLevels(levels); err != nil {
		return nil, fmt.Errorf("gamification.levels: %w", err)
	}

	personaSvc := persona.NewService(infra.Store, infra.Router, table)
	gamificationSvc := gamification.NewService(infra.Store, infra.Router, personaSvc, infra.Store, gamification.Config{
		ReactionPoints:     cfg.Gamification.ReactionPoints,
		MaestroPoints:      cfg.Gamification.MaestroPoints,
		MissionMasterCount: cfg.Gamification.MissionMasterCount,
		Levels:             levels,
	})
	missionSvc := mission.NewService(infra.Store, infra.Router, catalog, gamificationSvc, personaSvc)

	return &EngagementModule{
		persona:      personaSvc,
		gamification: gamificationSvc,
		missions:     missionSvc,
	}, nil
}

func (m *EngagementModule) Name() string { return "engagement" }

func (m *EngagementModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Persona = m.persona
	deps.Gamification = m.gamification
	deps.Missions = m.missions
}

func (m *EngagementModule) RegisterHandlers(r domain.Registrar) error {
	m.persona.Register(r)
	m.gamification.Register(r)
	m.missions.Register(r)
	return nil
}

func (m *EngagementModule) ContributeWorkers(w *jobs.Workers) {
	w.MissionTimeouts = jobs.NewMissionTimeoutWorker(m.missions)
}

func (m *EngagementModule) Shutdown(context.Context) error { return nil }

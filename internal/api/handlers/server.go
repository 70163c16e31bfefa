// Package handlers implements the Keeper HTTP API.
//
// Handlers translate requests into service calls and report failures with
// c.Error; middleware.ErrorHandler renders them. Route registration lives in
// the app package.
package handlers

import (
	"context"

	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/api/middleware"
	"keeper.dev/keeper/internal/gamification"
	"keeper.dev/keeper/internal/governance/audit"
	"keeper.dev/keeper/internal/mission"
	"keeper.dev/keeper/internal/persona"
	"keeper.dev/keeper/internal/publishing"
	"keeper.dev/keeper/internal/scheduler"
	"keeper.dev/keeper/internal/usecase"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds every API handler.
type Server struct {
	store        Pinger
	jwtCfg       middleware.JWTConfig
	ingest       *usecase.IngestInteractionUseCase
	access       *access.Service
	admissions   *access.Admissions
	missions     *mission.Service
	gamification *gamification.Service
	persona      *persona.Service
	publishing   *publishing.Service
	audit        *audit.Logger
	scheduler    *scheduler.Scheduler // Optional: job inspection endpoints
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI: modules fill in the fields they own.
type ServerDeps struct {
	Store        Pinger
	JWTCfg       middleware.JWTConfig
	Ingest       *usecase.IngestInteractionUseCase
	Access       *access.Service
	Admissions   *access.Admissions
	Missions     *mission.Service
	Gamification *gamification.Service
	Persona      *persona.Service
	Publishing   *publishing.Service
	Audit        *audit.Logger
	Scheduler    *scheduler.Scheduler
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		store:        deps.Store,
		jwtCfg:       deps.JWTCfg,
		ingest:       deps.Ingest,
		access:       deps.Access,
		admissions:   deps.Admissions,
		missions:     deps.Missions,
		gamification: deps.Gamification,
		persona:      deps.Persona,
		publishing:   deps.Publishing,
		audit:        deps.Audit,
		scheduler:    deps.Scheduler,
	}
}

// JWTConfig exposes the admin token settings the router guards with.
func (s *Server) JWTConfig() middleware.JWTConfig {
	return s.jwtCfg
}

// Package memory implements repository.Store in process memory. It backs the
// default single-process deployment and every service test.
package memory

import (
	"context"
	"fmt"
	"sync"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps each entity family behind its own mutex. Callbacks passed to
// Mutate methods run under that mutex and must not call back into the store.
type Store struct {
	missionsMu sync.Mutex
	missions   map[string]domain.MissionProgress

	accessMu      sync.Mutex
	plans         map[string]domain.Plan
	tokens        map[string]domain.InviteToken
	subscriptions map[string]domain.Subscription

	joinsMu sync.Mutex
	joins   map[string]domain.JoinRequest

	personaMu sync.Mutex
	personas  map[int64]domain.PersonaState

	pointsMu     sync.Mutex
	balances     map[int64]domain.PointsBalance
	ledger       []domain.PointsEntry
	achievements map[string]domain.AchievementGrant

	postsMu sync.Mutex
	posts   map[string]domain.ScheduledPost

	auditMu sync.Mutex
	audit   []domain.AuditEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		missions:      make(map[string]domain.MissionProgress),
		plans:         make(map[string]domain.Plan),
		tokens:        make(map[string]domain.InviteToken),
		subscriptions: make(map[string]domain.Subscription),
		joins:         make(map[string]domain.JoinRequest),
		personas:      make(map[int64]domain.PersonaState),
		balances:      make(map[int64]domain.PointsBalance),
		achievements:  make(map[string]domain.AchievementGrant),
		posts:         make(map[string]domain.ScheduledPost),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

func missionKey(userID int64, missionID string) string {
	return fmt.Sprintf("%d/%s", userID, missionID)
}

func achievementKey(userID int64, achievement string) string {
	return fmt.Sprintf("%d/%s", userID, achievement)
}

// Package repository declares the persistence contracts of Keeper.
//
// Every mutation is atomic per key. Mutate-style methods run the callback
// while holding the key, so read-check-write sequences cannot interleave
// with another writer of the same record. Conditional methods (Deactivate,
// Mark*) report whether this call performed the transition.
//
// Stores return apperrors.ErrNotFound for missing records and
// apperrors.ErrConflict for uniqueness violations.
package repository

import (
	"context"
	"time"

	"keeper.dev/keeper/internal/domain"
)

// MissionMutator edits a mission record in place. found is false when the
// record does not exist yet; rec then carries only its key. Returning an
// error aborts without persisting.
type MissionMutator func(rec *domain.MissionProgress, found bool) error

// MissionStore persists mission progress keyed by (user, mission).
type MissionStore interface {
	GetMissionProgress(ctx context.Context, userID int64, missionID string) (domain.MissionProgress, error)
	ListMissionProgress(ctx context.Context, userID int64) ([]domain.MissionProgress, error)
	ListMissionsByStatus(ctx context.Context, status domain.MissionStatus) ([]domain.MissionProgress, error)
	CountMissionsByStatus(ctx context.Context, userID int64, status domain.MissionStatus) (int, error)
	MutateMissionProgress(ctx context.Context, userID int64, missionID string, fn MissionMutator) (domain.MissionProgress, error)
}

// RedeemBuilder validates a locked token and its plan and returns the
// subscription to create. Returning an error aborts the redemption and
// leaves the token untouched.
type RedeemBuilder func(tok domain.InviteToken, plan domain.Plan) (domain.Subscription, error)

// AccessStore persists plans, invite tokens and subscriptions.
type AccessStore interface {
	CreatePlan(ctx context.Context, plan domain.Plan) error
	GetPlan(ctx context.Context, id string) (domain.Plan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)

	CreateInviteToken(ctx context.Context, tok domain.InviteToken) error
	GetInviteToken(ctx context.Context, token string) (domain.InviteToken, error)
	// RedeemInviteToken marks the token used by userID and stores the
	// subscription returned by build, as one atomic unit.
	RedeemInviteToken(ctx context.Context, token string, userID int64, now time.Time, build RedeemBuilder) (domain.Subscription, error)

	// CreateSubscription returns ErrConflict if the user already has an
	// active subscription.
	CreateSubscription(ctx context.Context, sub domain.Subscription) error
	GetActiveSubscription(ctx context.Context, userID int64) (domain.Subscription, error)
	ListActiveSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error)
	DeactivateSubscription(ctx context.Context, id string, reason domain.EndReason, at time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, id string, days int) (bool, error)
}

// AdmissionStore persists join requests.
type AdmissionStore interface {
	CreateJoinRequest(ctx context.Context, req domain.JoinRequest) error
	GetJoinRequest(ctx context.Context, id string) (domain.JoinRequest, error)
	ListDueJoinRequests(ctx context.Context, now time.Time) ([]domain.JoinRequest, error)
	MarkJoinRequestProcessed(ctx context.Context, id string, accepted bool, at time.Time) (bool, error)
}

// PersonaMutator edits a persona record in place; see MissionMutator.
type PersonaMutator func(rec *domain.PersonaState, found bool) error

// PersonaStore persists persona state keyed by user.
type PersonaStore interface {
	GetPersona(ctx context.Context, userID int64) (domain.PersonaState, error)
	MutatePersona(ctx context.Context, userID int64, fn PersonaMutator) (domain.PersonaState, error)
}

// GamificationStore persists the points ledger and achievements.
type GamificationStore interface {
	// AddPoints appends the ledger entry and returns the updated balance.
	AddPoints(ctx context.Context, entry domain.PointsEntry) (domain.PointsBalance, error)
	// GetPoints returns a zero balance for unknown users.
	GetPoints(ctx context.Context, userID int64) (domain.PointsBalance, error)
	ListPointsEntries(ctx context.Context, userID int64, limit int) ([]domain.PointsEntry, error)
	// InsertAchievement reports false when the grant already existed.
	InsertAchievement(ctx context.Context, grant domain.AchievementGrant) (bool, error)
	ListAchievements(ctx context.Context, userID int64) ([]domain.AchievementGrant, error)
}

// PostStore persists scheduled posts.
type PostStore interface {
	CreatePost(ctx context.Context, post domain.ScheduledPost) error
	GetPost(ctx context.Context, id string) (domain.ScheduledPost, error)
	ListDuePosts(ctx context.Context, now time.Time) ([]domain.ScheduledPost, error)
	MarkPostSent(ctx context.Context, id string, at time.Time) (bool, error)
	// RecordPostFailure increments attempts and marks the post failed once
	// attempts reach maxAttempts.
	RecordPostFailure(ctx context.Context, id, reason string, maxAttempts int) (domain.ScheduledPost, error)
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	EventType domain.EventType
	Since     time.Time
	Limit     int
}

// AuditStore persists audit entries.
type AuditStore interface {
	AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full persistence surface.
type Store interface {
	MissionStore
	AccessStore
	AdmissionStore
	PersonaStore
	GamificationStore
	PostStore
	AuditStore

	Ping(ctx context.Context) error
	Close()
}

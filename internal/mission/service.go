// Package mission runs the per-user mission progress state machine:
// pending → in_progress → completed | failed, with failed restartable and a
// one-time reward claim on completion.
package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// Ledger reasons used for mission rewards.
const (
	ReasonReward         = "mission_reward"
	ReasonRewardReversal = "mission_reward_reversal"
)

// Rejections.
var (
	ErrMissionNotFound = apperrors.NotFound(apperrors.CodeMissionNotFound, "mission not found")
	ErrNotInProgress   = apperrors.Conflict(apperrors.CodeMissionNotInProgress, "mission is not in progress")
	ErrNotCompleted    = apperrors.Conflict(apperrors.CodeMissionNotCompleted, "mission is not completed")
	ErrRewardClaimed   = apperrors.Conflict(apperrors.CodeRewardAlreadyClaimed, "mission reward already claimed")
)

// completionEpsilon absorbs float drift when trigger steps sum to 100.
const completionEpsilon = 1e-6

// PointsAwarder credits points. *gamification.Service satisfies it.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, userID, amount int64, reason string) (domain.PointsBalance, error)
}

// FragmentUnlocker grants fragments. *persona.Service satisfies it.
type FragmentUnlocker interface {
	UnlockFragment(ctx context.Context, userID int64, fragment, source string) (bool, error)
}

// Service drives mission progress.
type Service struct {
	store     repository.MissionStore
	router    domain.Dispatcher
	catalog   *Catalog
	points    PointsAwarder
	fragments FragmentUnlocker
	now       func() time.Time
}

// NewService creates a mission service.
func NewService(store repository.MissionStore, router domain.Dispatcher, catalog *Catalog, points PointsAwarder, fragments FragmentUnlocker) *Service {
	return &Service{
		store:     store,
		router:    router,
		catalog:   catalog,
		points:    points,
		fragments: fragments,
		now:       time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Catalog returns the mission catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) definition(missionID string) (Definition, error) {
	def, ok := s.catalog.Get(missionID)
	if !ok {
		return Definition{}, ErrMissionNotFound.WithParams(map[string]interface{}{"mission_id": missionID})
	}
	return def, nil
}

// Start begins a mission. In-progress and completed records are returned
// unchanged; a failed one restarts from zero.
func (s *Service) Start(ctx context.Context, userID int64, missionID string) (domain.MissionProgress, error) {
	if _, err := s.definition(missionID); err != nil {
		return domain.MissionProgress{}, err
	}

	started := false
	now := s.now().UTC()
	rec, err := s.store.MutateMissionProgress(ctx, userID, missionID, func(rec *domain.MissionProgress, found bool) error {
		if found && (rec.Status == domain.MissionInProgress || rec.Status == domain.MissionCompleted) {
			return nil
		}
		rec.Status = domain.MissionInProgress
		rec.Progress = domain.ProgressMin
		rec.StartedAt = now
		rec.CompletedAt = nil
		rec.RewardClaimed = false
		rec.UpdatedAt = now
		started = true
		return nil
	})
	if err != nil {
		return domain.MissionProgress{}, fmt.Errorf("start mission: %w", err)
	}

	if started {
		logger.Info("Mission started", zap.Int64("user_id", userID), zap.String("mission_id", missionID))
		s.router.Route(ctx, domain.MissionPayload{Type: domain.EventMissionStarted, UserID: userID, MissionID: missionID})
	}
	return rec, nil
}

// UpdateProgress sets progress to value, clamped to [0,100]. Reaching 100
// completes the mission.
func (s *Service) UpdateProgress(ctx context.Context, userID int64, missionID string, value float64) (domain.MissionProgress, error) {
	if _, err := s.definition(missionID); err != nil {
		return domain.MissionProgress{}, err
	}
	return s.mutateProgress(ctx, userID, missionID, func(float64) float64 { return value }, true)
}

// advance adds delta to an in-progress mission; other states are left
// alone without error.
func (s *Service) advance(ctx context.Context, userID int64, missionID string, delta float64) (domain.MissionProgress, error) {
	return s.mutateProgress(ctx, userID, missionID, func(cur float64) float64 { return cur + delta }, false)
}

func (s *Service) mutateProgress(ctx context.Context, userID int64, missionID string, next func(cur float64) float64, strict bool) (domain.MissionProgress, error) {
	completed := false
	now := s.now().UTC()
	rec, err := s.store.MutateMissionProgress(ctx, userID, missionID, func(rec *domain.MissionProgress, found bool) error {
		if !found || rec.Status != domain.MissionInProgress {
			if strict {
				return ErrNotInProgress.WithParams(map[string]interface{}{"mission_id": missionID, "status": string(rec.Status)})
			}
			return errSkip
		}
		progress := domain.ClampProgress(next(rec.Progress))
		if progress >= domain.ProgressMax-completionEpsilon {
			progress = domain.ProgressMax
		}
		rec.Progress = progress
		rec.UpdatedAt = now
		if progress == domain.ProgressMax {
			rec.Status = domain.MissionCompleted
			rec.CompletedAt = &now
			completed = true
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		return domain.MissionProgress{}, nil
	}
	if err != nil {
		return domain.MissionProgress{}, fmt.Errorf("update mission progress: %w", err)
	}

	if completed {
		logger.Info("Mission completed", zap.Int64("user_id", userID), zap.String("mission_id", missionID))
		s.router.Route(ctx, domain.MissionPayload{Type: domain.EventMissionCompleted, UserID: userID, MissionID: missionID})
	}
	return rec, nil
}

var errSkip = errors.New("mission: skip")

// Fail moves an in-progress mission to failed.
func (s *Service) Fail(ctx context.Context, userID int64, missionID, reason string) (domain.MissionProgress, error) {
	if _, err := s.definition(missionID); err != nil {
		return domain.MissionProgress{}, err
	}
	now := s.now().UTC()
	rec, err := s.store.MutateMissionProgress(ctx, userID, missionID, func(rec *domain.MissionProgress, found bool) error {
		if !found || !rec.Status.CanTransitionTo(domain.MissionFailed) {
			return ErrNotInProgress.WithParams(map[string]interface{}{"mission_id": missionID, "status": string(rec.Status)})
		}
		rec.Status = domain.MissionFailed
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.MissionProgress{}, fmt.Errorf("fail mission: %w", err)
	}

	logger.Info("Mission failed",
		zap.Int64("user_id", userID),
		zap.String("mission_id", missionID),
		zap.String("reason", reason),
	)
	s.router.Route(ctx, domain.MissionPayload{Type: domain.EventMissionFailed, UserID: userID, MissionID: missionID, Reason: reason})
	return rec, nil
}

// ClaimReward grants a completed mission's reward exactly once. The claim
// flag flips first; if applying the reward fails the flag is reverted and
// any points already credited are reversed.
func (s *Service) ClaimReward(ctx context.Context, userID int64, missionID string) (Reward, error) {
	def, err := s.definition(missionID)
	if err != nil {
		return Reward{}, err
	}

	_, err = s.store.MutateMissionProgress(ctx, userID, missionID, func(rec *domain.MissionProgress, found bool) error {
		if !found || rec.Status != domain.MissionCompleted {
			return ErrNotCompleted.WithParams(map[string]interface{}{"mission_id": missionID})
		}
		if rec.RewardClaimed {
			return ErrRewardClaimed.WithParams(map[string]interface{}{"mission_id": missionID})
		}
		rec.RewardClaimed = true
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Reward{}, fmt.Errorf("claim reward: %w", err)
	}

	if err := s.applyReward(ctx, userID, def); err != nil {
		s.revertClaim(ctx, userID, missionID)
		return Reward{}, fmt.Errorf("apply reward for %s: %w", missionID, err)
	}

	logger.Info("Mission reward claimed",
		zap.Int64("user_id", userID),
		zap.String("mission_id", missionID),
		zap.Int64("points", def.Reward.Points),
		zap.String("fragment", def.Reward.Fragment),
	)
	s.router.Route(ctx, domain.MissionRewardClaimedPayload{
		UserID:    userID,
		MissionID: missionID,
		Points:    def.Reward.Points,
		Fragment:  def.Reward.Fragment,
	})
	return def.Reward, nil
}

func (s *Service) applyReward(ctx context.Context, userID int64, def Definition) error {
	pointsApplied := false
	if def.Reward.Points > 0 {
		if _, err := s.points.AwardPoints(ctx, userID, def.Reward.Points, ReasonReward); err != nil {
			return fmt.Errorf("award points: %w", err)
		}
		pointsApplied = true
	}
	if def.Reward.Fragment != "" {
		if _, err := s.fragments.UnlockFragment(ctx, userID, def.Reward.Fragment, "mission:"+def.ID); err != nil {
			if pointsApplied {
				if _, rerr := s.points.AwardPoints(ctx, userID, -def.Reward.Points, ReasonRewardReversal); rerr != nil {
					logger.Error("Failed to reverse mission reward points",
						zap.Int64("user_id", userID),
						zap.String("mission_id", def.ID),
						zap.Error(rerr),
					)
				}
			}
			return fmt.Errorf("unlock fragment: %w", err)
		}
	}
	return nil
}

func (s *Service) revertClaim(ctx context.Context, userID int64, missionID string) {
	_, err := s.store.MutateMissionProgress(ctx, userID, missionID, func(rec *domain.MissionProgress, _ bool) error {
		rec.RewardClaimed = false
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		logger.Error("Failed to revert reward claim",
			zap.Int64("user_id", userID),
			zap.String("mission_id", missionID),
			zap.Error(err),
		)
	}
}

// List returns the user's mission records.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.MissionProgress, error) {
	recs, err := s.store.ListMissionProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return recs, nil
}

// Get returns one mission record.
func (s *Service) Get(ctx context.Context, userID int64, missionID string) (domain.MissionProgress, error) {
	rec, err := s.store.GetMissionProgress(ctx, userID, missionID)
	if apperrors.IsNotFound(err) {
		return domain.MissionProgress{}, ErrMissionNotFound.WithParams(map[string]interface{}{"mission_id": missionID})
	}
	if err != nil {
		return domain.MissionProgress{}, fmt.Errorf("get mission: %w", err)
	}
	return rec, nil
}

// FailExpired fails every in-progress mission whose definition time limit
// has elapsed at now, and returns how many were failed. One bad record
// never stops the sweep.
func (s *Service) FailExpired(ctx context.Context, now time.Time) (int, error) {
	recs, err := s.store.ListMissionsByStatus(ctx, domain.MissionInProgress)
	if err != nil {
		return 0, fmt.Errorf("list in-progress missions: %w", err)
	}

	failed := 0
	for _, rec := range recs {
		def, ok := s.catalog.Get(rec.MissionID)
		if !ok || def.TimeLimit <= 0 {
			continue
		}
		if now.Before(rec.StartedAt.Add(def.TimeLimit)) {
			continue
		}
		if _, err := s.Fail(ctx, rec.UserID, rec.MissionID, "time_limit"); err != nil {
			if apperrors.IsRejected(err) {
				continue
			}
			logger.Error("Mission timeout failed",
				zap.Int64("user_id", rec.UserID),
				zap.String("mission_id", rec.MissionID),
				zap.Error(err),
			)
			continue
		}
		failed++
	}
	return failed, nil
}

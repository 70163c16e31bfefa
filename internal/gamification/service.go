// Package gamification keeps the points ledger and achievement grants and
// reacts to interaction events.
package gamification

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// Reasons recorded on ledger entries.
const (
	ReasonChannelReaction = "channel_reaction"
	ReasonMissionReward   = "mission_reward"
	ReasonManual          = "manual"
)

// Built-in achievements.
const (
	AchievementLevelMaestro         = "level_maestro"
	AchievementMissionMaster        = "mission_master"
	AchievementCommunityContributor = "community_contributor"
)

// Achievement describes an unlockable achievement.
type Achievement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var achievements = []Achievement{
	{Name: AchievementLevelMaestro, Description: "Reach Maestro level"},
	{Name: AchievementMissionMaster, Description: "Complete 10 missions"},
	{Name: AchievementCommunityContributor, Description: "Reacted to a message"},
}

// Achievements lists every achievement the service can grant.
func Achievements() []Achievement {
	return append([]Achievement(nil), achievements...)
}

// FragmentFor names the narrative fragment granted with an achievement.
func FragmentFor(achievement string) string {
	return "fragment_" + achievement
}

// Config tunes awards and thresholds. Zero fields take defaults.
type Config struct {
	ReactionPoints     int64
	MaestroPoints      int64
	MissionMasterCount int
	// Levels are the named point thresholds. Nil uses DefaultLevels.
	Levels []Level
}

func (c Config) withDefaults() Config {
	if c.ReactionPoints == 0 {
		c.ReactionPoints = 5
	}
	if c.MaestroPoints == 0 {
		c.MaestroPoints = 1000
	}
	if c.MissionMasterCount == 0 {
		c.MissionMasterCount = 10
	}
	if len(c.Levels) == 0 {
		c.Levels = DefaultLevels()
	}
	c.Levels = sortLevels(c.Levels)
	return c
}

// FragmentUnlocker grants narrative fragments. *persona.Service satisfies it.
type FragmentUnlocker interface {
	UnlockFragment(ctx context.Context, userID int64, fragment, source string) (bool, error)
}

// CompletionCounter counts a user's missions in a status.
type CompletionCounter interface {
	CountMissionsByStatus(ctx context.Context, userID int64, status domain.MissionStatus) (int, error)
}

// Service awards points and achievements.
type Service struct {
	store     repository.GamificationStore
	router    domain.Dispatcher
	fragments FragmentUnlocker
	missions  CompletionCounter
	cfg       Config
	known     map[string]bool
	now       func() time.Time
}

// NewService creates a gamification service.
func NewService(store repository.GamificationStore, router domain.Dispatcher, fragments FragmentUnlocker, missions CompletionCounter, cfg Config) *Service {
	known := make(map[string]bool, len(achievements))
	for _, a := range achievements {
		known[a.Name] = true
	}
	return &Service{
		store:     store,
		router:    router,
		fragments: fragments,
		missions:  missions,
		cfg:       cfg.withDefaults(),
		known:     known,
		now:       time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AwardPoints credits amount to the user's balance, appends a ledger row and
// routes POINTS_AWARDED.
func (s *Service) AwardPoints(ctx context.Context, userID, amount int64, reason string) (domain.PointsBalance, error) {
	if amount == 0 {
		return domain.PointsBalance{}, apperrors.BadRequest(apperrors.CodeInvalidPoints, "amount must be non-zero")
	}
	if reason == "" {
		return domain.PointsBalance{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "reason is required")
	}

	bal, err := s.store.AddPoints(ctx, domain.PointsEntry{
		ID:        domain.NewID("pts"),
		UserID:    userID,
		Delta:     amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.PointsBalance{}, fmt.Errorf("add points: %w", err)
	}

	logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("total", bal.Total),
	)
	s.router.Route(ctx, domain.PointsAwardedPayload{UserID: userID, Amount: amount, Reason: reason, Total: bal.Total})
	return bal, nil
}

// UnlockAchievement grants the achievement if the user does not hold it yet
// and reports whether it was new. ACHIEVEMENT_UNLOCKED is routed only for
// new grants.
func (s *Service) UnlockAchievement(ctx context.Context, userID int64, name string) (bool, error) {
	if !s.known[name] {
		return false, apperrors.NotFound(apperrors.CodeAchievementNotFound, "achievement not found").
			WithParams(map[string]interface{}{"achievement": name})
	}

	inserted, err := s.store.InsertAchievement(ctx, domain.AchievementGrant{
		UserID:      userID,
		Achievement: name,
		UnlockedAt:  s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	if !inserted {
		return false, nil
	}

	logger.Info("Achievement unlocked", zap.Int64("user_id", userID), zap.String("achievement", name))
	s.router.Route(ctx, domain.AchievementUnlockedPayload{
		UserID:      userID,
		Achievement: name,
		Fragment:    FragmentFor(name),
	})
	return true, nil
}

// Profile is a user's gamification summary.
type Profile struct {
	UserID       int64                     `json:"user_id"`
	Points       int64                     `json:"points"`
	Level        Level                     `json:"level"`
	NextLevel    *Level                    `json:"next_level,omitempty"`
	Achievements []domain.AchievementGrant `json:"achievements"`
	Recent       []domain.PointsEntry      `json:"recent_points"`
}

// GetProfile returns the balance, achievements and latest ledger rows.
func (s *Service) GetProfile(ctx context.Context, userID int64, recent int) (Profile, error) {
	bal, err := s.store.GetPoints(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("get points: %w", err)
	}
	grants, err := s.store.ListAchievements(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("list achievements: %w", err)
	}
	entries, err := s.store.ListPointsEntries(ctx, userID, recent)
	if err != nil {
		return Profile{}, fmt.Errorf("list points: %w", err)
	}
	sort.SliceStable(grants, func(i, j int) bool { return grants[i].UnlockedAt.Before(grants[j].UnlockedAt) })
	return Profile{
		UserID:       userID,
		Points:       bal.Total,
		Level:        s.LevelFor(bal.Total),
		NextLevel:    s.nextLevel(bal.Total),
		Achievements: grants,
		Recent:       entries,
	}, nil
}

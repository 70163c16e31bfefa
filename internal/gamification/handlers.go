package gamification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/pkg/logger"
)

// Register attaches the gamification handlers. Order within a type is the
// order below.
func (s *Service) Register(r domain.Registrar) {
	r.Register(domain.EventChannelReaction, "gamification.award_reaction", s.onChannelReaction)
	r.Register(domain.EventPointsAwarded, "gamification.community_contributor", s.onReactionPoints)
	r.Register(domain.EventPointsAwarded, "gamification.level", s.onLevelChange)
	r.Register(domain.EventPointsAwarded, "gamification.level_maestro", s.onPointsTotal)
	r.Register(domain.EventMissionCompleted, "gamification.mission_master", s.onMissionCompleted)
	r.Register(domain.EventAchievementUnlocked, "gamification.achievement_fragment", s.onAchievementUnlocked)
}

func (s *Service) onChannelReaction(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.ChannelReactionPayload](event)
	if err != nil {
		return err
	}
	_, err = s.AwardPoints(ctx, p.UserID, s.cfg.ReactionPoints, ReasonChannelReaction)
	return err
}

func (s *Service) onReactionPoints(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.PointsAwardedPayload](event)
	if err != nil {
		return err
	}
	if p.Reason != ReasonChannelReaction {
		return nil
	}
	_, err = s.UnlockAchievement(ctx, p.UserID, AchievementCommunityContributor)
	return err
}

// onLevelChange compares the level before and after the award. Promotions
// route LEVEL_UP; a reversal that drops a level is only logged.
func (s *Service) onLevelChange(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.PointsAwardedPayload](event)
	if err != nil {
		return err
	}
	before := s.LevelFor(p.Total - p.Amount)
	after := s.LevelFor(p.Total)
	if before.Name == after.Name {
		return nil
	}
	if after.Points < before.Points {
		logger.Info("Level lowered",
			zap.Int64("user_id", p.UserID),
			zap.String("from", before.Name),
			zap.String("to", after.Name),
			zap.Int64("total", p.Total),
		)
		return nil
	}

	logger.Info("Level up",
		zap.Int64("user_id", p.UserID),
		zap.String("from", before.Name),
		zap.String("to", after.Name),
		zap.Int64("total", p.Total),
	)
	s.router.Route(ctx, domain.LevelUpPayload{UserID: p.UserID, From: before.Name, To: after.Name, Total: p.Total})
	return nil
}

func (s *Service) onPointsTotal(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.PointsAwardedPayload](event)
	if err != nil {
		return err
	}
	if p.Total < s.cfg.MaestroPoints {
		return nil
	}
	_, err = s.UnlockAchievement(ctx, p.UserID, AchievementLevelMaestro)
	return err
}

func (s *Service) onMissionCompleted(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.MissionPayload](event)
	if err != nil {
		return err
	}
	n, err := s.missions.CountMissionsByStatus(ctx, p.UserID, domain.MissionCompleted)
	if err != nil {
		return fmt.Errorf("count completed missions: %w", err)
	}
	if n < s.cfg.MissionMasterCount {
		return nil
	}
	_, err = s.UnlockAchievement(ctx, p.UserID, AchievementMissionMaster)
	return err
}

func (s *Service) onAchievementUnlocked(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.AchievementUnlockedPayload](event)
	if err != nil {
		return err
	}
	fragment := p.Fragment
	if fragment == "" {
		fragment = FragmentFor(p.Achievement)
	}
	added, err := s.fragments.UnlockFragment(ctx, p.UserID, fragment, "achievement:"+p.Achievement)
	if err != nil {
		return fmt.Errorf("unlock fragment %s: %w", fragment, err)
	}
	if !added {
		logger.Debug("Achievement fragment already unlocked",
			zap.Int64("user_id", p.UserID),
			zap.String("fragment", fragment),
		)
	}
	return nil
}

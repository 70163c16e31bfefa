package memory

import (
	"context"
	"sort"

	"keeper.dev/keeper/internal/domain"
)

func (s *Store) AddPoints(_ context.Context, entry domain.PointsEntry) (domain.PointsBalance, error) {
	s.pointsMu.Lock()
	defer s.pointsMu.Unlock()
	bal := s.balances[entry.UserID]
	bal.UserID = entry.UserID
	bal.Total += entry.Delta
	bal.UpdatedAt = entry.CreatedAt
	s.balances[entry.UserID] = bal
	s.ledger = append(s.ledger, entry)
	return bal, nil
}

func (s *Store) GetPoints(_ context.Context, userID int64) (domain.PointsBalance, error) {
	s.pointsMu.Lock()
	defer s.pointsMu.Unlock()
	bal, ok := s.balances[userID]
	if !ok {
		return domain.PointsBalance{UserID: userID}, nil
	}
	return bal, nil
}

// ListPointsEntries returns the newest entries first.
func (s *Store) ListPointsEntries(_ context.Context, userID int64, limit int) ([]domain.PointsEntry, error) {
	s.pointsMu.Lock()
	defer s.pointsMu.Unlock()
	var out []domain.PointsEntry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID != userID {
			continue
		}
		out = append(out, s.ledger[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) InsertAchievement(_ context.Context, grant domain.AchievementGrant) (bool, error) {
	s.pointsMu.Lock()
	defer s.pointsMu.Unlock()
	key := achievementKey(grant.UserID, grant.Achievement)
	if _, ok := s.achievements[key]; ok {
		return false, nil
	}
	s.achievements[key] = grant
	return true, nil
}

func (s *Store) ListAchievements(_ context.Context, userID int64) ([]domain.AchievementGrant, error) {
	s.pointsMu.Lock()
	defer s.pointsMu.Unlock()
	var out []domain.AchievementGrant
	for _, grant := range s.achievements {
		if grant.UserID == userID {
			out = append(out, grant)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].Achievement < out[j].Achievement
	})
	return out, nil
}

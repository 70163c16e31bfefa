package memory

import (
	"context"
	"sort"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/repository"
)

func (s *Store) GetMissionProgress(_ context.Context, userID int64, missionID string) (domain.MissionProgress, error) {
	s.missionsMu.Lock()
	defer s.missionsMu.Unlock()
	rec, ok := s.missions[missionKey(userID, missionID)]
	if !ok {
		return domain.MissionProgress{}, apperrors.ErrNotFound
	}
	return cloneMission(rec), nil
}

func (s *Store) ListMissionProgress(_ context.Context, userID int64) ([]domain.MissionProgress, error) {
	s.missionsMu.Lock()
	defer s.missionsMu.Unlock()
	var out []domain.MissionProgress
	for _, rec := range s.missions {
		if rec.UserID == userID {
			out = append(out, cloneMission(rec))
		}
	}
	sortMissions(out)
	return out, nil
}

func (s *Store) ListMissionsByStatus(_ context.Context, status domain.MissionStatus) ([]domain.MissionProgress, error) {
	s.missionsMu.Lock()
	defer s.missionsMu.Unlock()
	var out []domain.MissionProgress
	for _, rec := range s.missions {
		if rec.Status == status {
			out = append(out, cloneMission(rec))
		}
	}
	sortMissions(out)
	return out, nil
}

func (s *Store) CountMissionsByStatus(_ context.Context, userID int64, status domain.MissionStatus) (int, error) {
	s.missionsMu.Lock()
	defer s.missionsMu.Unlock()
	n := 0
	for _, rec := range s.missions {
		if rec.UserID == userID && rec.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) MutateMissionProgress(_ context.Context, userID int64, missionID string, fn repository.MissionMutator) (domain.MissionProgress, error) {
	s.missionsMu.Lock()
	defer s.missionsMu.Unlock()

	key := missionKey(userID, missionID)
	rec, found := s.missions[key]
	if found {
		rec = cloneMission(rec)
	} else {
		rec = domain.MissionProgress{UserID: userID, MissionID: missionID, Status: domain.MissionPending}
	}
	if err := fn(&rec, found); err != nil {
		return domain.MissionProgress{}, err
	}
	rec.UserID, rec.MissionID = userID, missionID
	s.missions[key] = rec
	return cloneMission(rec), nil
}

func cloneMission(rec domain.MissionProgress) domain.MissionProgress {
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		rec.CompletedAt = &at
	}
	return rec
}

func sortMissions(recs []domain.MissionProgress) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UserID != recs[j].UserID {
			return recs[i].UserID < recs[j].UserID
		}
		return recs[i].MissionID < recs[j].MissionID
	})
}

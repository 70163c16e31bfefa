package gamification

import (
	"fmt"
	"sort"
)

// Level is a named point threshold.
type Level struct {
	Name   string `json:"name" yaml:"name"`
	Points int64  `json:"points" yaml:"points"`
}

// DefaultLevels returns the built-in level ladder.
func DefaultLevels() []Level {
	return []Level{
		{Name: "Novice", Points: 0},
		{Name: "Apprentice", Points: 100},
		{Name: "Adept", Points: 500},
		{Name: "Maestro", Points: 1000},
	}
}

// ValidateLevels rejects ladders with blank or duplicate names, duplicate
// thresholds or negative thresholds.
func ValidateLevels(levels []Level) error {
	names := make(map[string]bool, len(levels))
	points := make(map[int64]bool, len(levels))
	for _, l := range levels {
		if l.Name == "" {
			return fmt.Errorf("level at %d points has no name", l.Points)
		}
		if l.Points < 0 {
			return fmt.Errorf("level %q has negative threshold %d", l.Name, l.Points)
		}
		if names[l.Name] {
			return fmt.Errorf("level %q defined twice", l.Name)
		}
		if points[l.Points] {
			return fmt.Errorf("two levels share threshold %d", l.Points)
		}
		names[l.Name] = true
		points[l.Points] = true
	}
	return nil
}

func sortLevels(levels []Level) []Level {
	out := append([]Level(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Points < out[j].Points })
	return out
}

// LevelFor returns the highest level whose threshold total reaches. Totals
// below every threshold, negative ones included, get the lowest level.
func (s *Service) LevelFor(total int64) Level {
	return s.cfg.Levels[s.levelIndex(total)]
}

func (s *Service) levelIndex(total int64) int {
	idx := 0
	for i, l := range s.cfg.Levels {
		if total < l.Points {
			break
		}
		idx = i
	}
	return idx
}

func (s *Service) nextLevel(total int64) *Level {
	idx := s.levelIndex(total) + 1
	if idx >= len(s.cfg.Levels) {
		return nil
	}
	next := s.cfg.Levels[idx]
	return &next
}

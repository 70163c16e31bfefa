package domain

import "time"

// MissionStatus is the lifecycle state of a user's mission.
type MissionStatus string

const (
	MissionPending    MissionStatus = "pending"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
)

// Progress bounds.
const (
	ProgressMin = 0.0
	ProgressMax = 100.0
)

var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionPending:    {MissionInProgress},
	MissionInProgress: {MissionCompleted, MissionFailed},
	MissionFailed:     {MissionInProgress},
}

// CanTransitionTo reports whether the mission machine allows moving from s
// to next. Completed is terminal.
func (s MissionStatus) CanTransitionTo(next MissionStatus) bool {
	for _, allowed := range missionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MissionProgress is one user's progress through one mission.
type MissionProgress struct {
	UserID        int64         `json:"user_id"`
	MissionID     string        `json:"mission_id"`
	Status        MissionStatus `json:"status"`
	Progress      float64       `json:"progress"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	RewardClaimed bool          `json:"reward_claimed"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ClampProgress bounds v to [ProgressMin, ProgressMax].
func ClampProgress(v float64) float64 {
	return min(max(v, ProgressMin), ProgressMax)
}

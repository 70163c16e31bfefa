package domain

import "time"

// PointsBalance is a user's running points total.
type PointsBalance struct {
	UserID    int64     `json:"user_id"`
	Total     int64     `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointsEntry is one ledger movement.
type PointsEntry struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// AchievementGrant records an unlocked achievement. Unique per user and
// achievement.
type AchievementGrant struct {
	UserID      int64     `json:"user_id"`
	Achievement string    `json:"achievement"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

package domain

import "time"

// ScheduledPost is content queued for publication at a given time.
type ScheduledPost struct {
	ID          string     `json:"id"`
	ChannelID   int64      `json:"channel_id"`
	Content     string     `json:"content"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	Failed      bool       `json:"failed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Due reports whether the post should be attempted at now.
func (p ScheduledPost) Due(now time.Time) bool {
	return !p.Sent && !p.Failed && !p.ScheduledAt.After(now)
}

package domain

import (
	"slices"
	"time"
)

// Plan is a purchasable access tariff.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	PriceCents   int64     `json:"price_cents"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Duration returns the access period the plan grants.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// InviteToken is a one-shot credential granting a plan.
type InviteToken struct {
	Token     string     `json:"token"`
	PlanID    string     `json:"plan_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token can no longer be redeemed at now.
func (t InviteToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SubscriptionSource records how a subscription was granted.
type SubscriptionSource string

const (
	SourceToken  SubscriptionSource = "token"
	SourceManual SubscriptionSource = "manual"
)

// EndReason records why a subscription stopped being active.
type EndReason string

const (
	EndExpired EndReason = "expired"
	EndRevoked EndReason = "revoked"
)

// Subscription is a paid access grant. A user has at most one active
// subscription; inactive ones are kept as history.
type Subscription struct {
	ID            string             `json:"id"`
	UserID        int64              `json:"user_id"`
	PlanID        string             `json:"plan_id,omitempty"`
	Source        SubscriptionSource `json:"source"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	IsActive      bool               `json:"is_active"`
	EndedAt       *time.Time         `json:"ended_at,omitempty"`
	EndReason     EndReason          `json:"end_reason,omitempty"`
	RemindersSent []int              `json:"reminders_sent,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ActiveAt reports whether the subscription grants access at now.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.IsActive && s.EndDate.After(now)
}

// Reminded reports whether the reminder for the given days-left threshold
// has already been sent.
func (s Subscription) Reminded(days int) bool {
	return slices.Contains(s.RemindersSent, days)
}

// DaysUntilEnd counts calendar days (UTC) between now and the end date.
func (s Subscription) DaysUntilEnd(now time.Time) int {
	return CalendarDaysBetween(now, s.EndDate)
}

// CalendarDaysBetween counts UTC calendar-date boundaries from a to b.
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// JoinRequest is a pending request to enter a gated channel.
type JoinRequest struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	ChannelID   int64      `json:"channel_id"`
	RequestedAt time.Time  `json:"requested_at"`
	AcceptAt    time.Time  `json:"accept_at"`
	Processed   bool       `json:"processed"`
	Accepted    bool       `json:"accepted"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Due reports whether the request should be processed at now.
func (r JoinRequest) Due(now time.Time) bool {
	return !r.Processed && !r.AcceptAt.After(now)
}

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a routed event.
type EventType string

const (
	// Interaction events
	EventChannelReaction    EventType = "CHANNEL_REACTION"
	EventPersonaInteraction EventType = "PERSONA_INTERACTION"
	EventAbuseDetected      EventType = "ABUSE_DETECTED"

	// Gamification events
	EventPointsAwarded       EventType = "POINTS_AWARDED"
	EventAchievementUnlocked EventType = "ACHIEVEMENT_UNLOCKED"
	EventFragmentUnlocked    EventType = "FRAGMENT_UNLOCKED"
	EventLevelUp             EventType = "LEVEL_UP"

	// Persona events
	EventPersonaStateChanged EventType = "PERSONA_STATE_CHANGED"

	// Mission events
	EventMissionStarted       EventType = "MISSION_STARTED"
	EventMissionCompleted     EventType = "MISSION_COMPLETED"
	EventMissionFailed        EventType = "MISSION_FAILED"
	EventMissionRewardClaimed EventType = "MISSION_REWARD_CLAIMED"

	// Access events
	EventSubscriptionGranted  EventType = "SUBSCRIPTION_GRANTED"
	EventSubscriptionExpiring EventType = "SUBSCRIPTION_EXPIRING"
	EventSubscriptionExpired  EventType = "SUBSCRIPTION_EXPIRED"
	EventSubscriptionRevoked  EventType = "SUBSCRIPTION_REVOKED"
	EventJoinRequestProcessed EventType = "JOIN_REQUEST_PROCESSED"

	// Publishing events
	EventPostPublished EventType = "POST_PUBLISHED"
)

// ErrInvalidPayload marks a payload rejected before dispatch.
var ErrInvalidPayload = errors.New("invalid event payload")

// Payload is the typed body of an event. Each event type has exactly one
// payload type.
type Payload interface {
	EventType() EventType
	Validate() error
}

// Subject is implemented by payloads that concern a single user.
type Subject interface {
	SubjectID() int64
}

// Matchable is implemented by payloads that carry a value content rules can
// match on, such as the achievement name.
type Matchable interface {
	MatchKey() string
}

// Event is an immutable routed event.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Payload    Payload   `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
	Depth      int       `json:"depth"`
}

// NewEvent wraps a payload into an event stamped at the given time.
func NewEvent(p Payload, at time.Time) Event {
	return Event{
		ID:         newEventID(),
		Type:       p.EventType(),
		Payload:    p,
		OccurredAt: at.UTC(),
	}
}

// PayloadAs returns the event payload as T, or an error when the payload is
// of a different type.
func PayloadAs[T Payload](e Event) (T, error) {
	p, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: event %s carries %T, want %T", ErrInvalidPayload, e.Type, e.Payload, zero)
	}
	return p, nil
}

func newEventID() string {
	return NewID("evt")
}

// NewID returns a prefixed, time-ordered identifier.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return prefix + "-" + uuid.New().String()
	}
	return prefix + "-" + id.String()
}

func requireUser(t EventType, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("%w: %s requires user_id", ErrInvalidPayload, t)
	}
	return nil
}

func requireField(t EventType, name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidPayload, t, name)
	}
	return nil
}

// ChannelReactionPayload is emitted when a user reacts to a channel post.
type ChannelReactionPayload struct {
	UserID    int64  `json:"user_id"`
	ChannelID int64  `json:"channel_id"`
	MessageID int64  `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}

func (ChannelReactionPayload) EventType() EventType { return EventChannelReaction }
func (p ChannelReactionPayload) SubjectID() int64   { return p.UserID }
func (p ChannelReactionPayload) Validate() error {
	return requireUser(EventChannelReaction, p.UserID)
}

// PersonaInteractionPayload carries a narrative interaction.
type PersonaInteractionPayload struct {
	UserID         int64   `json:"user_id"`
	Interaction    string  `json:"interaction"`
	ResonanceDelta float64 `json:"resonance_delta"`
}

func (PersonaInteractionPayload) EventType() EventType { return EventPersonaInteraction }
func (p PersonaInteractionPayload) MatchKey() string   { return p.Interaction }
func (p PersonaInteractionPayload) SubjectID() int64   { return p.UserID }
func (p PersonaInteractionPayload) Validate() error {
	if err := requireUser(EventPersonaInteraction, p.UserID); err != nil {
		return err
	}
	return requireField(EventPersonaInteraction, "interaction", p.Interaction)
}

// AbuseDetectedPayload is emitted when the abuse gate imposes a cooldown.
type AbuseDetectedPayload struct {
	UserID        int64     `json:"user_id"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

func (AbuseDetectedPayload) EventType() EventType { return EventAbuseDetected }
func (p AbuseDetectedPayload) SubjectID() int64   { return p.UserID }
func (p AbuseDetectedPayload) Validate() error {
	return requireUser(EventAbuseDetected, p.UserID)
}

// PointsAwardedPayload is emitted after points are credited.
type PointsAwardedPayload struct {
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Total  int64  `json:"total"`
}

func (PointsAwardedPayload) EventType() EventType { return EventPointsAwarded }
func (p PointsAwardedPayload) SubjectID() int64   { return p.UserID }
func (p PointsAwardedPayload) MatchKey() string   { return p.Reason }
func (p PointsAwardedPayload) Validate() error {
	if err := requireUser(EventPointsAwarded, p.UserID); err != nil {
		return err
	}
	return requireField(EventPointsAwarded, "reason", p.Reason)
}

// AchievementUnlockedPayload is emitted the first time a user earns an
// achievement.
type AchievementUnlockedPayload struct {
	UserID      int64  `json:"user_id"`
	Achievement string `json:"achievement"`
	Fragment    string `json:"fragment,omitempty"`
}

func (AchievementUnlockedPayload) EventType() EventType { return EventAchievementUnlocked }
func (p AchievementUnlockedPayload) SubjectID() int64   { return p.UserID }
func (p AchievementUnlockedPayload) MatchKey() string   { return p.Achievement }
func (p AchievementUnlockedPayload) Validate() error {
	if err := requireUser(EventAchievementUnlocked, p.UserID); err != nil {
		return err
	}
	return requireField(EventAchievementUnlocked, "achievement", p.Achievement)
}

// LevelUpPayload is emitted when a points award lifts a user into a higher
// level.
type LevelUpPayload struct {
	UserID int64  `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Total  int64  `json:"total"`
}

func (LevelUpPayload) EventType() EventType { return EventLevelUp }
func (p LevelUpPayload) SubjectID() int64   { return p.UserID }
func (p LevelUpPayload) MatchKey() string   { return p.To }
func (p LevelUpPayload) Validate() error {
	if err := requireUser(EventLevelUp, p.UserID); err != nil {
		return err
	}
	return requireField(EventLevelUp, "to", p.To)
}

// FragmentUnlockedPayload is emitted the first time a fragment is unlocked.
type FragmentUnlockedPayload struct {
	UserID   int64  `json:"user_id"`
	Fragment string `json:"fragment"`
	Source   string `json:"source,omitempty"`
}

func (FragmentUnlockedPayload) EventType() EventType { return EventFragmentUnlocked }
func (p FragmentUnlockedPayload) SubjectID() int64   { return p.UserID }
func (p FragmentUnlockedPayload) MatchKey() string   { return p.Fragment }
func (p FragmentUnlockedPayload) Validate() error {
	if err := requireUser(EventFragmentUnlocked, p.UserID); err != nil {
		return err
	}
	return requireField(EventFragmentUnlocked, "fragment", p.Fragment)
}

// PersonaStateChangedPayload is emitted when the emotional state moves.
type PersonaStateChangedPayload struct {
	UserID    int64   `json:"user_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Resonance float64 `json:"resonance"`
}

func (PersonaStateChangedPayload) EventType() EventType { return EventPersonaStateChanged }
func (p PersonaStateChangedPayload) SubjectID() int64   { return p.UserID }
func (p PersonaStateChangedPayload) MatchKey() string   { return p.To }
func (p PersonaStateChangedPayload) Validate() error {
	if err := requireUser(EventPersonaStateChanged, p.UserID); err != nil {
		return err
	}
	return requireField(EventPersonaStateChanged, "to", p.To)
}

// MissionPayload is shared by the mission lifecycle events.
type MissionPayload struct {
	Type      EventType `json:"-"`
	UserID    int64     `json:"user_id"`
	MissionID string    `json:"mission_id"`
	Reason    string    `json:"reason,omitempty"`
}

func (p MissionPayload) EventType() EventType { return p.Type }
func (p MissionPayload) SubjectID() int64     { return p.UserID }
func (p MissionPayload) MatchKey() string     { return p.MissionID }
func (p MissionPayload) Validate() error {
	switch p.Type {
	case EventMissionStarted, EventMissionCompleted, EventMissionFailed:
	default:
		return fmt.Errorf("%w: %q is not a mission lifecycle event", ErrInvalidPayload, p.Type)
	}
	if err := requireUser(p.Type, p.UserID); err != nil {
		return err
	}
	return requireField(p.Type, "mission_id", p.MissionID)
}

// MissionRewardClaimedPayload is emitted once a reward has been applied.
type MissionRewardClaimedPayload struct {
	UserID    int64  `json:"user_id"`
	MissionID string `json:"mission_id"`
	Points    int64  `json:"points"`
	Fragment  string `json:"fragment,omitempty"`
}

func (MissionRewardClaimedPayload) EventType() EventType { return EventMissionRewardClaimed }
func (p MissionRewardClaimedPayload) SubjectID() int64   { return p.UserID }
func (p MissionRewardClaimedPayload) MatchKey() string   { return p.MissionID }
func (p MissionRewardClaimedPayload) Validate() error {
	if err := requireUser(EventMissionRewardClaimed, p.UserID); err != nil {
		return err
	}
	return requireField(EventMissionRewardClaimed, "mission_id", p.MissionID)
}

// SubscriptionPayload is shared by the subscription lifecycle events.
type SubscriptionPayload struct {
	Type           EventType `json:"-"`
	UserID         int64     `json:"user_id"`
	SubscriptionID string    `json:"subscription_id"`
	PlanID         string    `json:"plan_id,omitempty"`
	EndDate        time.Time `json:"end_date"`
	DaysLeft       int       `json:"days_left,omitempty"`
}

func (p SubscriptionPayload) EventType() EventType { return p.Type }
func (p SubscriptionPayload) SubjectID() int64     { return p.UserID }
func (p SubscriptionPayload) MatchKey() string     { return p.PlanID }
func (p SubscriptionPayload) Validate() error {
	switch p.Type {
	case EventSubscriptionGranted, EventSubscriptionExpired, EventSubscriptionRevoked:
	case EventSubscriptionExpiring:
		if p.DaysLeft <= 0 {
			return fmt.Errorf("%w: %s requires days_left", ErrInvalidPayload, p.Type)
		}
	default:
		return fmt.Errorf("%w: %q is not a subscription event", ErrInvalidPayload, p.Type)
	}
	if err := requireUser(p.Type, p.UserID); err != nil {
		return err
	}
	return requireField(p.Type, "subscription_id", p.SubscriptionID)
}

// JoinRequestProcessedPayload is emitted once per processed join request.
type JoinRequestProcessedPayload struct {
	RequestID string `json:"request_id"`
	UserID    int64  `json:"user_id"`
	ChannelID int64  `json:"channel_id"`
	Accepted  bool   `json:"accepted"`
}

func (JoinRequestProcessedPayload) EventType() EventType { return EventJoinRequestProcessed }
func (p JoinRequestProcessedPayload) SubjectID() int64   { return p.UserID }
func (p JoinRequestProcessedPayload) Validate() error {
	if err := requireUser(EventJoinRequestProcessed, p.UserID); err != nil {
		return err
	}
	return requireField(EventJoinRequestProcessed, "request_id", p.RequestID)
}

// PostPublishedPayload is emitted after a scheduled post went out.
type PostPublishedPayload struct {
	PostID    string `json:"post_id"`
	ChannelID int64  `json:"channel_id"`
}

func (PostPublishedPayload) EventType() EventType { return EventPostPublished }
func (p PostPublishedPayload) Validate() error {
	return requireField(EventPostPublished, "post_id", p.PostID)
}

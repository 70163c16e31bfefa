package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/pkg/logger"
)

// Triggers turns routed events into user notices. Delivery failures are
// logged and the notice is accepted as lost.
type Triggers struct {
	gateway Gateway
}

// NewTriggers creates the notification trigger set.
func NewTriggers(gateway Gateway) *Triggers {
	return &Triggers{gateway: gateway}
}

// notifiedEvents lists the event types that produce a notice, with the
// notice title.
var notifiedEvents = []struct {
	eventType domain.EventType
	title     string
}{
	{domain.EventPointsAwarded, "Points awarded"},
	{domain.EventAchievementUnlocked, "Achievement unlocked"},
	{domain.EventLevelUp, "Level up"},
	{domain.EventFragmentUnlocked, "Fragment unlocked"},
	{domain.EventSubscriptionGranted, "Subscription active"},
	{domain.EventSubscriptionExpiring, "Subscription ending soon"},
	{domain.EventSubscriptionExpired, "Subscription expired"},
	{domain.EventSubscriptionRevoked, "Subscription revoked"},
	{domain.EventAbuseDetected, "Slow down"},
}

// Register attaches one notify handler per notified event type.
func (t *Triggers) Register(r domain.Registrar) {
	for _, ne := range notifiedEvents {
		r.Register(ne.eventType, "notification.notify", t.notify(ne.title))
	}
}

func (t *Triggers) notify(title string) domain.Handler {
	return func(ctx context.Context, event domain.Event) error {
		subject, ok := event.Payload.(domain.Subject)
		if !ok {
			return fmt.Errorf("%w: %s has no subject user", domain.ErrInvalidPayload, event.Type)
		}
		notice := Notice{
			Kind:  string(event.Type),
			Title: title,
			Data:  noticeData(event.Payload),
		}
		if err := t.gateway.Notify(ctx, subject.SubjectID(), notice); err != nil {
			logger.Warn("Notification delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Int64("user_id", subject.SubjectID()),
				zap.Error(err),
			)
		}
		return nil
	}
}

func noticeData(p domain.Payload) map[string]any {
	switch v := p.(type) {
	case domain.PointsAwardedPayload:
		return map[string]any{"amount": v.Amount, "reason": v.Reason, "total": v.Total}
	case domain.AchievementUnlockedPayload:
		return map[string]any{"achievement": v.Achievement}
	case domain.LevelUpPayload:
		return map[string]any{"from": v.From, "to": v.To, "total": v.Total}
	case domain.FragmentUnlockedPayload:
		return map[string]any{"fragment": v.Fragment}
	case domain.SubscriptionPayload:
		data := map[string]any{"end_date": v.EndDate}
		if v.DaysLeft > 0 {
			data["days_left"] = v.DaysLeft
		}
		return data
	case domain.AbuseDetectedPayload:
		return map[string]any{"cooldown_until": v.CooldownUntil}
	}
	return nil
}

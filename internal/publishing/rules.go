package publishing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/pkg/logger"
)

// Rule publishes Content to ChannelID whenever an Event is routed whose
// match key equals Match. An empty Match fires on every event of the type.
type Rule struct {
	Event     domain.EventType
	Match     string
	ChannelID int64
	Content   string
}

// ParseTrigger splits an "EVENT:MATCH" trigger. The match part is
// optional.
func ParseTrigger(trigger string) (domain.EventType, string, error) {
	event, match, _ := strings.Cut(strings.TrimSpace(trigger), ":")
	if event == "" {
		return "", "", fmt.Errorf("content rule trigger %q: missing event", trigger)
	}
	return domain.EventType(event), match, nil
}

func (r Rule) validate() error {
	if r.Event == "" {
		return fmt.Errorf("content rule: event is required")
	}
	if r.ChannelID == 0 {
		return fmt.Errorf("content rule %s: channel_id is required", r.Event)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("content rule %s: content is required", r.Event)
	}
	return nil
}

func (r Rule) matches(event domain.Event) bool {
	if r.Match == "" {
		return true
	}
	m, ok := event.Payload.(domain.Matchable)
	return ok && m.MatchKey() == r.Match
}

// RegisterRules validates rules and attaches them to the router. A
// matching event queues the content as a post due now and attempts it
// immediately; a failed attempt is retried by the post sweep.
func (s *Service) RegisterRules(r domain.Registrar, rules []Rule) error {
	for _, rule := range rules {
		if err := rule.validate(); err != nil {
			return err
		}
	}
	for i, rule := range rules {
		name := fmt.Sprintf("publishing.rule.%d", i)
		r.Register(rule.Event, name, func(ctx context.Context, event domain.Event) error {
			if !rule.matches(event) {
				return nil
			}
			post, err := s.Schedule(ctx, rule.ChannelID, rule.Content, event.OccurredAt)
			if err != nil {
				return fmt.Errorf("queue rule content: %w", err)
			}
			logger.Info("Content rule fired",
				zap.String("event_type", string(event.Type)),
				zap.String("match", rule.Match),
				zap.String("post_id", post.ID),
			)
			s.publish(ctx, post, s.now())
			return nil
		})
	}
	return nil
}

// Package usecase provides application use cases shared by the HTTP API
// and the CLI.
package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
)

// Interaction kinds accepted by IngestInteraction.
const (
	KindReaction = "reaction"
	KindPersona  = "persona"
)

// ErrActorInCooldown is returned for interactions suppressed by the abuse
// gate.
var ErrActorInCooldown = apperrors.TooManyRequests(apperrors.CodeActorInCooldown, "actor is in cooldown")

// AbuseGate tracks per-actor interaction rates. *abuse.Gate satisfies it.
type AbuseGate interface {
	IsInCooldown(actor int64) bool
	CooldownUntil(actor int64) time.Time
	RecordAndCheck(actor int64) bool
}

// IngestInteractionInput is a raw interaction from the messaging platform.
type IngestInteractionInput struct {
	Kind   string `json:"kind" binding:"required"`
	UserID int64  `json:"user_id" binding:"required"`

	// Reaction fields.
	ChannelID int64  `json:"channel_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`

	// Persona fields.
	Interaction    string  `json:"interaction,omitempty"`
	ResonanceDelta float64 `json:"resonance_delta,omitempty"`
}

// IngestInteractionOutput reports what happened to an accepted interaction.
type IngestInteractionOutput struct {
	EventType     domain.EventType `json:"event_type"`
	AbuseDetected bool             `json:"abuse_detected"`
	CooldownUntil *time.Time       `json:"cooldown_until,omitempty"`
}

// IngestInteractionUseCase passes interactions through the abuse gate and
// routes the accepted ones.
type IngestInteractionUseCase struct {
	gate   AbuseGate
	router domain.Dispatcher
}

// NewIngestInteractionUseCase creates the use case.
func NewIngestInteractionUseCase(gate AbuseGate, router domain.Dispatcher) *IngestInteractionUseCase {
	return &IngestInteractionUseCase{gate: gate, router: router}
}

// Execute suppresses interactions from actors in cooldown. Otherwise the
// interaction is recorded and routed; when it pushes the actor over the
// limit, ABUSE_DETECTED is routed first and the interaction itself still
// goes through.
func (uc *IngestInteractionUseCase) Execute(ctx context.Context, in IngestInteractionInput) (*IngestInteractionOutput, error) {
	payload, err := toPayload(in)
	if err != nil {
		return nil, err
	}

	if uc.gate.IsInCooldown(in.UserID) {
		until := uc.gate.CooldownUntil(in.UserID)
		logger.Debug("Interaction suppressed: actor in cooldown",
			zap.Int64("user_id", in.UserID),
			zap.Time("cooldown_until", until),
		)
		return nil, ErrActorInCooldown.WithParams(map[string]interface{}{"cooldown_until": until})
	}

	out := &IngestInteractionOutput{EventType: payload.EventType()}
	if uc.gate.RecordAndCheck(in.UserID) {
		until := uc.gate.CooldownUntil(in.UserID)
		out.AbuseDetected = true
		out.CooldownUntil = &until
		logger.Warn("Abuse detected, cooldown imposed",
			zap.Int64("user_id", in.UserID),
			zap.Time("cooldown_until", until),
		)
		uc.router.Route(ctx, domain.AbuseDetectedPayload{UserID: in.UserID, CooldownUntil: until})
	}

	uc.router.Route(ctx, payload)
	return out, nil
}

func toPayload(in IngestInteractionInput) (domain.Payload, error) {
	var p domain.Payload
	switch in.Kind {
	case KindReaction:
		p = domain.ChannelReactionPayload{
			UserID:    in.UserID,
			ChannelID: in.ChannelID,
			MessageID: in.MessageID,
			Emoji:     in.Emoji,
		}
	case KindPersona:
		p = domain.PersonaInteractionPayload{
			UserID:         in.UserID,
			Interaction:    in.Interaction,
			ResonanceDelta: in.ResonanceDelta,
		}
	default:
		return nil, apperrors.BadRequest(apperrors.CodeInvalidInteraction, "unknown interaction kind").
			WithParams(map[string]interface{}{"kind": in.Kind})
	}
	if err := p.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInteraction, fmt.Sprintf("invalid %s interaction", in.Kind), http.StatusBadRequest)
	}
	return p, nil
}

package domain

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
)

// DefaultMaxChainDepth bounds how deep handlers may chain new events.
const DefaultMaxChainDepth = 16

// Handler reacts to a routed event. Handlers may route further events
// before returning.
type Handler func(ctx context.Context, event Event) error

// AuditSink receives every event before its handlers run.
type AuditSink interface {
	Record(ctx context.Context, event Event)
}

// Dispatcher routes payloads. *EventRouter satisfies it.
type Dispatcher interface {
	Route(ctx context.Context, payload Payload)
}

// Registrar accepts handler registrations. *EventRouter satisfies it.
type Registrar interface {
	Register(eventType EventType, name string, handler Handler)
}

var (
	_ Dispatcher = (*EventRouter)(nil)
	_ Registrar  = (*EventRouter)(nil)
)

type registration struct {
	name string
	fn   Handler
}

// EventRouter routes events to registered handlers, synchronously and in
// registration order. A failing or panicking handler is logged and skipped;
// its siblings still run.
type EventRouter struct {
	handlers map[EventType][]registration
	mu       sync.RWMutex

	audit    AuditSink
	maxDepth int
	now      func() time.Time
}

// RouterOption configures an EventRouter.
type RouterOption func(*EventRouter)

// WithAuditSink sets the sink every event is recorded to before dispatch.
func WithAuditSink(sink AuditSink) RouterOption {
	return func(r *EventRouter) { r.audit = sink }
}

// WithMaxChainDepth overrides DefaultMaxChainDepth.
func WithMaxChainDepth(depth int) RouterOption {
	return func(r *EventRouter) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithRouterClock overrides the clock used to stamp events.
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *EventRouter) { r.now = now }
}

// NewEventRouter creates a new EventRouter.
func NewEventRouter(opts ...RouterOption) *EventRouter {
	r := &EventRouter{
		handlers: make(map[EventType][]registration),
		maxDepth: DefaultMaxChainDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a handler for an event type. The name only appears in
// logs; registering the same handler twice runs it twice.
func (r *EventRouter) Register(eventType EventType, name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], registration{name: name, fn: handler})
}

// Handlers returns the registered handler names for an event type, in
// invocation order.
func (r *EventRouter) Handlers(eventType EventType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.handlers[eventType]
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.name
	}
	return names
}

// Route records the event to the audit sink and runs every handler
// registered for its type. Invalid payloads and events beyond the chain
// depth limit are logged and dropped. Handler outcomes are never returned
// to the caller.
func (r *EventRouter) Route(ctx context.Context, payload Payload) {
	if payload == nil {
		logger.Warn("Dropping nil event payload")
		return
	}
	if err := payload.Validate(); err != nil {
		logger.Warn("Dropping invalid event",
			zap.String("event_type", string(payload.EventType())),
			zap.Error(err),
		)
		return
	}

	depth := ChainDepth(ctx) + 1
	if depth > r.maxDepth {
		logger.Error("Event chain too deep, dropping event",
			zap.String("event_type", string(payload.EventType())),
			zap.Int("depth", depth),
			zap.Int("max_depth", r.maxDepth),
		)
		return
	}

	event := NewEvent(payload, r.now())
	event.Depth = depth

	if r.audit != nil {
		r.audit.Record(ctx, event)
	}

	r.mu.RLock()
	regs := r.handlers[event.Type]
	r.mu.RUnlock()

	if len(regs) == 0 {
		logger.Debug("No handlers registered for event type",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
		)
		return
	}

	chained := withChainDepth(ctx, depth)
	for _, reg := range regs {
		r.invoke(chained, reg, event)
	}
}

func (r *EventRouter) invoke(ctx context.Context, reg registration, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.String("handler", reg.name),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	err := reg.fn(ctx, event)
	switch {
	case err == nil:
	case apperrors.IsRejected(err):
		logger.Warn("Event handler rejected event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("handler", reg.name),
			zap.Error(err),
		)
	default:
		logger.Error("Event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("handler", reg.name),
			zap.Error(err),
		)
	}
}

type chainDepthKey struct{}

// ChainDepth reports how many routed events enclose the current call.
func ChainDepth(ctx context.Context) int {
	depth, _ := ctx.Value(chainDepthKey{}).(int)
	return depth
}

func withChainDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, chainDepthKey{}, depth)
}

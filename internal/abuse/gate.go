// Package abuse implements the per-actor sliding-window gate that sits in
// front of the interaction pipeline.
package abuse

import (
	"sync"
	"time"
)

// Defaults for the gate.
const (
	DefaultLimit    = 20
	DefaultWindow   = 60 * time.Second
	DefaultCooldown = 60 * time.Second
)

// Config configures a Gate. Zero fields take the defaults.
type Config struct {
	Limit    int
	Window   time.Duration
	Cooldown time.Duration
}

type record struct {
	timestamps    []time.Time
	cooldownUntil time.Time
}

// Gate counts interactions per actor inside a rolling window and imposes a
// cooldown when the limit is exceeded. Records are owned by the gate and
// live only in memory.
type Gate struct {
	mu      sync.Mutex
	records map[int64]*record

	limit    int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the gate clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate.
func NewGate(cfg Config, opts ...Option) *Gate {
	g := &Gate{
		records:  make(map[int64]*record),
		limit:    cfg.Limit,
		window:   cfg.Window,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
	if g.limit <= 0 {
		g.limit = DefaultLimit
	}
	if g.window <= 0 {
		g.window = DefaultWindow
	}
	if g.cooldown <= 0 {
		g.cooldown = DefaultCooldown
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsInCooldown reports whether the actor is cooling down. An expired
// cooldown is cleared.
func (g *Gate) IsInCooldown(actor int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[actor]
	if !ok || rec.cooldownUntil.IsZero() {
		return false
	}
	if g.now().Before(rec.cooldownUntil) {
		return true
	}
	rec.cooldownUntil = time.Time{}
	return false
}

// CooldownUntil returns the end of the actor's cooldown, or the zero time.
func (g *Gate) CooldownUntil(actor int64) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.records[actor]; ok {
		return rec.cooldownUntil
	}
	return time.Time{}
}

// RecordAndCheck records one interaction and reports whether it pushed the
// actor over the limit, in which case a cooldown starts now.
func (g *Gate) RecordAndCheck(actor int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, ok := g.records[actor]
	if !ok {
		rec = &record{}
		g.records[actor] = rec
	}
	rec.timestamps = append(g.live(rec.timestamps, now), now)

	if len(rec.timestamps) > g.limit {
		rec.cooldownUntil = now.Add(g.cooldown)
		return true
	}
	return false
}

// Compact drops records with no live timestamps and no live cooldown, and
// returns how many were dropped.
func (g *Gate) Compact() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	dropped := 0
	for actor, rec := range g.records {
		rec.timestamps = g.live(rec.timestamps, now)
		if len(rec.timestamps) == 0 && !now.Before(rec.cooldownUntil) {
			delete(g.records, actor)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked actors.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// live returns the suffix of ts younger than the window. ts is ordered.
func (g *Gate) live(ts []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= g.window {
		i++
	}
	return ts[i:]
}

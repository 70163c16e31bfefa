package domain

import (
	"slices"
	"time"
)

// Resonance bounds.
const (
	ResonanceMin = 0.0
	ResonanceMax = 100.0
)

// PersonaState is the narrative persona's relationship with one user.
type PersonaState struct {
	UserID            int64     `json:"user_id"`
	EmotionalState    string    `json:"emotional_state"`
	Resonance         float64   `json:"resonance"`
	UnlockedFragments []string  `json:"unlocked_fragments"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasFragment reports whether the fragment is unlocked.
func (p PersonaState) HasFragment(id string) bool {
	return slices.Contains(p.UnlockedFragments, id)
}

// AddFragment unlocks a fragment and reports whether it was new.
func (p *PersonaState) AddFragment(id string) bool {
	if p.HasFragment(id) {
		return false
	}
	p.UnlockedFragments = append(p.UnlockedFragments, id)
	return true
}

// ClampResonance bounds v to [ResonanceMin, ResonanceMax].
func ClampResonance(v float64) float64 {
	return min(max(v, ResonanceMin), ResonanceMax)
}

package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is one persisted audit record: the routed event as it was
// dispatched.
type AuditEntry struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	Depth      int             `json:"depth"`
	RecordedAt time.Time       `json:"recorded_at"`
}

package events

import "time"

// Envelope is the shared work-item shape carried on the process bus.
// Pipeline phases are addressed by EventType; consumers must stay idempotent
// because delivery is at-least-once.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	SourceService string    `json:"source_service"`
	OccurredAtUTC time.Time `json:"occurred_at_utc"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id,omitempty"`
	Payload       any       `json:"payload,omitempty"`
}

package outbox

import "time"

// Record is an outbox row persisted inside the same DB transaction as the
// order state change. The relay worker reads pending rows and publishes them
// to the process bus.
type Record struct {
	OutboxID    string
	EventType   string
	OrderID     string
	Payload     []byte
	Status      string // pending, published, failed
	RetryCount  int
	CreatedAt   time.Time
	PublishedAt *time.Time
	LastError   string
}

const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

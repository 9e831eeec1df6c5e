package domain

import "time"

// EventType names a domain event published to the broker.
type EventType string

const (
	EventTransactionCreated   EventType = "transaction.created"
	EventTransactionDeleted   EventType = "transaction.deleted"
	EventTransactionsImported EventType = "transactions.imported"
	EventBudgetSaved          EventType = "budget.saved"
)

// Event is the message body published after a successful write. Consumers
// re-read state from the API; the payload only says what changed.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"userId"`
	EntityID  string    `json:"entityId,omitempty"`
	Month     string    `json:"month,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, userID string) Event {
	return Event{Type: t, UserID: userID, Timestamp: time.Now().UTC()}
}

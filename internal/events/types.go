// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/serum-sender/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Transaction lifecycle events
	TransactionSubmitted EventType = "transaction.submitted"
	TransactionConfirmed EventType = "transaction.confirmed"
	TransactionFailed    EventType = "transaction.failed"

	// Alert events
	AlertChanged EventType = "alert.changed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TransactionSubmittedEvent is emitted once the signed transaction is known.
type TransactionSubmittedEvent struct {
	BaseEvent
	Signature string
	Wallet    string
	// Mode is "native-send" or "manual-sign".
	Mode string
}

// TransactionConfirmedEvent is emitted when the transaction is confirmed.
type TransactionConfirmedEvent struct {
	BaseEvent
	Signature string
	Slot      uint64
	// Source names the watcher that observed the confirmation.
	Source   string
	Duration time.Duration
}

// TransactionFailedEvent is emitted on any failed outcome.
type TransactionFailedEvent struct {
	BaseEvent
	Signature string
	// Outcome is "timed_out", "program_error" or "rejected".
	Outcome  string
	Reason   string
	Duration time.Duration
}

// AlertChangedEvent carries a snapshot of the user-facing alert.
type AlertChangedEvent struct {
	BaseEvent
	Title       string
	Description []types.Notice
	Visible     bool
	Severity    types.Severity
}

package models

import "time"

// EventType enumerates the calendar event kinds.
type EventType string

const (
	EventRemoteWork EventType = "REMOTE_WORK"
	EventPaidLeave  EventType = "PAID_LEAVE"
)

// Valid reports whether the type is one of the known kinds.
func (t EventType) Valid() bool {
	return t == EventRemoteWork || t == EventPaidLeave
}

// EventStatus enumerates the approval states of an event.
type EventStatus string

const (
	EventPending  EventStatus = "PENDING"
	EventAccepted EventStatus = "ACCEPTED"
	EventDeclined EventStatus = "DECLINED"
)

// Event is a single-day calendar record owned by one user.
// At most one event may exist per (user_id, date) pair.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Date        time.Time   `db:"date" json:"date"`
	Type        EventType   `db:"event_type" json:"event_type"`
	Status      EventStatus `db:"event_status" json:"event_status"`
	Description *string     `db:"description" json:"description,omitempty"`
	UserID      string      `db:"user_id" json:"user_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

package models

import "time"

// Event type constants
const (
	EventSessionOpened    = "session_opened"
	EventSessionClosed    = "session_closed"
	EventSessionCancelled = "session_cancelled"
)

// SessionEvent is the domain event emitted after a lifecycle operation
// commits. Delivery is best effort: publishing never fails the operation
// that produced the event.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	PostID    string    `json:"post_id"`
	WorkerID  string    `json:"worker_id"`
	Timestamp time.Time `json:"timestamp"`
}

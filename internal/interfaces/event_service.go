package interfaces

import "time"

// EventType represents job lifecycle event types
type EventType string

const (
	EventJobCreated       EventType = "job_created"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventJobRunning       EventType = "job_running"
	EventJobCompleted     EventType = "job_completed"
	EventJobFailed        EventType = "job_failed"
	EventPaymentExpired   EventType = "payment_expired"
	EventFinalizeFailed   EventType = "finalize_failed"
)

// Event represents a job lifecycle event
type Event struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventService manages the in-process job event stream
type EventService interface {
	// Publish broadcasts an event to all subscribers
	Publish(event Event)

	// Subscribe registers a new subscriber and returns its channel plus an
	// unsubscribe function
	Subscribe() (<-chan Event, func())

	// Recent returns the most recent events, newest last
	Recent() []Event

	// Close shuts down the event service
	Close()
}

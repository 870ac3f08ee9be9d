package alert

import "time"

// EventKind classifies monitor events.
type EventKind string

// Events published by the monitor.
const (
	EventMonitoringStarted EventKind = "monitoring_started"
	EventMonitoringStopped EventKind = "monitoring_stopped"
	EventPoll              EventKind = "poll"
	EventPollFailed        EventKind = "poll_failed"
	EventAlert             EventKind = "alert"
	EventLoopStarted       EventKind = "loop_started"
	EventLoopStopped       EventKind = "loop_stopped"
	EventAcknowledged      EventKind = "acknowledged"
)

// Event is a notable change in the monitor.
type Event struct {
	// Kind classifies the event.
	Kind EventKind `json:"kind"`
	// ShopID is the shop the event belongs to.
	ShopID string `json:"shopId,omitempty"`
	// Count is the pending-order count for poll and alert events.
	Count int `json:"count"`
	// Error is set for poll_failed.
	Error string `json:"error,omitempty"`
	// At is when the event happened.
	At time.Time `json:"at"`
}

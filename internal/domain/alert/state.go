package alert

import (
	"time"
	"unicode/utf8"
)

// TaskHandle identifies a scheduled recurring poll task.
type TaskHandle int

// NoTask is the zero handle meaning no poll task is scheduled.
const NoTask TaskHandle = 0

// shopNamePrefixLength is how many characters of the shop id the default name keeps.
const shopNamePrefixLength = 8

// MonitorState is the state owned by the monitor.
// PollHandle is not NoTask exactly while monitoring is active.
type MonitorState struct {
	// ShopID is the shop being monitored.
	ShopID string
	// Session identifies the current monitoring session; ticks from older sessions are discarded.
	Session string
	// PollHandle is the handle of the recurring poll task.
	PollHandle TaskHandle
	// LastAlertAt is when the last one-shot alert fired.
	LastAlertAt time.Time
	// ObservedCount is the pending-order count seen by the last applied poll.
	ObservedCount int
	// IsLooping tells whether the looping alert was requested from the audio surface.
	IsLooping bool
	// UserAcknowledged suppresses the looping alert until a poll observes zero orders.
	UserAcknowledged bool
}

// Active reports whether monitoring is running.
func (s *MonitorState) Active() bool {
	return s.PollHandle != NoTask
}

// Reset returns the session fields to their defaults.
// LastAlertAt survives so the one-shot throttle spans restarts.
// IsLooping is owned by the loop helpers and is left alone.
func (s *MonitorState) Reset() {
	s.ShopID = ""
	s.Session = ""
	s.PollHandle = NoTask
	s.ObservedCount = 0
	s.UserAcknowledged = false
}

// Clone returns a copy of the state.
func (s *MonitorState) Clone() *MonitorState {
	cloned := *s

	return &cloned
}

// Status returns the externally visible view of the state.
func (s *MonitorState) Status() *Status {
	return &Status{
		ShopID:           s.ShopID,
		Active:           s.Active(),
		ObservedCount:    s.ObservedCount,
		IsLooping:        s.IsLooping,
		UserAcknowledged: s.UserAcknowledged,
		LastAlertAt:      s.LastAlertAt,
	}
}

// Status is the monitor state as reported to the UI.
type Status struct {
	// ShopID is the monitored shop, empty when idle.
	ShopID string
	// Active reports whether a poll task is scheduled.
	Active bool
	// ObservedCount is the last applied pending-order count.
	ObservedCount int
	// IsLooping reports whether the looping alert is on.
	IsLooping bool
	// UserAcknowledged reports whether the operator silenced the current incident.
	UserAcknowledged bool
	// LastAlertAt is when the last one-shot alert fired.
	LastAlertAt time.Time
}

// ShopConfig is the persisted shop selection written by the UI.
type ShopConfig struct {
	// ShopID identifies the shop at the count endpoint.
	ShopID string
	// ShopName is for display only.
	ShopName string
}

// DefaultShopName derives a display name from the shop id, e.g. "Shop 1234abcd...".
func DefaultShopName(shopID string) string {
	if utf8.RuneCountInString(shopID) <= shopNamePrefixLength {
		return "Shop " + shopID
	}

	return "Shop " + string([]rune(shopID)[:shopNamePrefixLength]) + "..."
}

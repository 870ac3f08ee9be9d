package alert

import (
	"errors"
	"fmt"
)

// Action names a command in the message protocol.
type Action string

// Commands accepted by the monitor.
const (
	ActionStartMonitoring Action = "startMonitoring"
	ActionStopMonitoring  Action = "stopMonitoring"
	ActionStopSound       Action = "stopSound"
	ActionTestSounds      Action = "testSounds"
	ActionGetStatus       Action = "getStatus"
)

// Playback instructions accepted by the audio surface.
// ActionTestSounds is shared with the monitor protocol.
const (
	ActionPlayNotification   Action = "playNotification"
	ActionStartLoopingNotify Action = "startLoopingNotify"
	ActionStopLoopingNotify  Action = "stopLoopingNotify"
)

var (
	// ErrUnknownAction is reported for an action the receiver does not handle.
	ErrUnknownAction = errors.New("unknown action")
	// ErrShopIDRequired is reported when startMonitoring carries no shop id.
	ErrShopIDRequired = errors.New("shop id is required")
	// ErrCommandFailed wraps a failure reported in a response body.
	ErrCommandFailed = errors.New("command failed")
)

// Request is a command message.
type Request struct {
	// Action selects the handler.
	Action Action
	// ShopID is only used by startMonitoring.
	ShopID string
}

// Response acknowledges a Request.
type Response struct {
	// Success is false when the command was rejected or failed.
	Success bool
	// Error describes the failure when Success is false.
	Error string
	// Status is set by getStatus.
	Status *Status
}

// OK returns a successful response.
func OK() Response {
	return Response{Success: true}
}

// Fail returns a failed response carrying err's message.
func Fail(err error) Response {
	if err == nil {
		return OK()
	}

	return Response{Error: err.Error()}
}

// Err converts a failed response back into an error.
func (r Response) Err() error {
	if r.Success {
		return nil
	}

	if r.Error == "" {
		return ErrCommandFailed
	}

	return fmt.Errorf("%w: %s", ErrCommandFailed, r.Error)
}

package httpapi

import (
	"time"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// commandBody is the JSON form of a command.
type commandBody struct {
	Action string `json:"action"`
	ShopID string `json:"shopId,omitempty"`
}

// responseBody is the JSON form of an acknowledgment.
type responseBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Status  *statusBody `json:"status,omitempty"`
}

// statusBody is the JSON form of the monitor status.
type statusBody struct {
	ShopID           string     `json:"shopId"`
	Active           bool       `json:"active"`
	ObservedCount    int        `json:"observedCount"`
	IsLooping        bool       `json:"isLooping"`
	UserAcknowledged bool       `json:"userAcknowledged"`
	LastAlertAt      *time.Time `json:"lastAlertAt,omitempty"`
}

// healthBody is returned by /health.
type healthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// toRequest converts a command body.
func (b *commandBody) toRequest() domain.Request {
	return domain.Request{
		Action: domain.Action(b.Action),
		ShopID: b.ShopID,
	}
}

// toResponseBody converts an acknowledgment.
func toResponseBody(resp domain.Response) *responseBody {
	return &responseBody{
		Success: resp.Success,
		Error:   resp.Error,
		Status:  toStatusBody(resp.Status),
	}
}

// toStatusBody converts a status; nil stays nil.
func toStatusBody(status *domain.Status) *statusBody {
	if status == nil {
		return nil
	}

	body := &statusBody{
		ShopID:           status.ShopID,
		Active:           status.Active,
		ObservedCount:    status.ObservedCount,
		IsLooping:        status.IsLooping,
		UserAcknowledged: status.UserAcknowledged,
	}

	if !status.LastAlertAt.IsZero() {
		at := status.LastAlertAt.UTC()
		body.LastAlertAt = &at
	}

	return body
}

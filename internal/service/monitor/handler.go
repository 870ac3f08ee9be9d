package monitor

import (
	"context"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// Handle executes a UI command and builds its acknowledgment.
// Command errors are reported in the response, never returned.
func (m *Monitor) Handle(ctx context.Context, req domain.Request) domain.Response {
	logger.DebugKV(ctx, "Command received", "action", string(req.Action), "shop_id", req.ShopID)

	switch req.Action {
	case domain.ActionStartMonitoring:
		return domain.Fail(m.StartMonitoring(ctx, req.ShopID))
	case domain.ActionStopMonitoring:
		m.StopMonitoring(ctx)
	case domain.ActionStopSound:
		m.Acknowledge(ctx)
	case domain.ActionTestSounds:
		return domain.Fail(m.TestSounds(ctx))
	case domain.ActionGetStatus:
		resp := domain.OK()
		resp.Status = m.Status()

		return resp
	default:
		logger.WarnKV(ctx, "Unknown command", "action", string(req.Action))

		return domain.Fail(domain.ErrUnknownAction)
	}

	return domain.OK()
}

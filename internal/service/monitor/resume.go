package monitor

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/repository/shop"
)

// ShopSource reads the persisted shop selection.
type ShopSource interface {
	Load(ctx context.Context) (*domain.ShopConfig, error)
}

// Resume starts monitoring the stored shop, if any. It runs at process start
// and whenever the store is written. A session already monitoring the stored
// shop is left alone so repeated store events do not reset it.
func (m *Monitor) Resume(ctx context.Context, source ShopSource) (bool, error) {
	cfg, err := source.Load(ctx)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		logger.Info(ctx, "No shop configured, waiting for setup")
		return false, nil
	case err != nil:
		return false, fmt.Errorf("load shop: %w", err)
	}

	m.mu.Lock()
	running := m.state.Active() && m.state.ShopID == cfg.ShopID
	m.mu.Unlock()

	if running {
		logger.DebugKV(ctx, "Stored shop already monitored", "shop_id", cfg.ShopID)
		return false, nil
	}

	logger.InfoKV(ctx, "Resuming monitoring", "shop_id", cfg.ShopID, "shop_name", cfg.ShopName)

	if err = m.StartMonitoring(ctx, cfg.ShopID); err != nil {
		return false, err
	}

	return true, nil
}

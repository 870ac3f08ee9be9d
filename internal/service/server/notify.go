package server

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// notifyTitle is the desktop notification title.
const notifyTitle = "New orders"

// notifyDesktop shows a desktop notification.
func notifyDesktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

// runDesktopNotifier shows a notification for every alert event until ctx is
// canceled or the subscription closes.
func runDesktopNotifier(ctx context.Context, events <-chan domain.Event, notify func(title, message string) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			if event.Kind != domain.EventAlert {
				continue
			}

			message := fmt.Sprintf("%d pending order(s)", event.Count)
			if err := notify(notifyTitle, message); err != nil {
				logger.WarnKV(ctx, "Desktop notification failed", "error", err)
			}
		}
	}
}

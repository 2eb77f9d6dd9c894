// Package notifier surfaces order outcomes as desktop notifications.
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/sousbot/sousbot/pkg/logger"
)

// OrderNotifier sends desktop notifications for order lifecycle events.
// A disabled notifier is a silent no-op so the engine never branches.
type OrderNotifier struct {
	enabled      bool
	successSound bool
	failureSound bool
	logger       logger.Logger
}

// Config represents notification configuration.
type Config struct {
	Enabled      bool
	SuccessSound bool
	FailureSound bool
}

// New creates a new order notifier.
func New(config Config, log logger.Logger) *OrderNotifier {
	return &OrderNotifier{
		enabled:      config.Enabled,
		successSound: config.SuccessSound,
		failureSound: config.FailureSound,
		logger:       log,
	}
}

// NotifyOrderStart notifies that an order has entered Processing.
func (n *OrderNotifier) NotifyOrderStart(orderID int64, recipe string) {
	if !n.enabled {
		return
	}

	title := "🍜 Sousbot"
	message := fmt.Sprintf("Preparing %s for order #%d...", recipe, orderID)

	n.send(title, message, false)
}

// NotifyOrderSuccess notifies that an order completed.
func (n *OrderNotifier) NotifyOrderSuccess(orderID int64, recipe string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Order Completed"
	message := fmt.Sprintf("#%d %s served in %s", orderID, recipe, formatDuration(duration))

	n.send(title, message, n.successSound)
}

// NotifyOrderFailure notifies that an order failed or timed out.
func (n *OrderNotifier) NotifyOrderFailure(orderID int64, recipe string, err error) {
	if !n.enabled {
		return
	}

	title := "❌ Order Failed"
	message := fmt.Sprintf("#%d %s: %v", orderID, recipe, err)

	n.send(title, message, n.failureSound)
}

func (n *OrderNotifier) send(title, message string, sound bool) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

package jobs

import (
	"context"

	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/notifications"
)

// DrainOutbox delivers dispatch jobs the wake-up path missed.
func DrainOutbox(d *notifications.Dispatcher) func() {
	return func() {
		n, err := d.Drain(context.Background())
		if err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Error draining dispatch outbox")
			return
		}
		if n > 0 {
			logger.Log.Info().Int("count", n).Msg("Drained dispatch jobs")
		}
	}
}

package jobs

import (
	"context"

	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/services"
)

// SendScheduleReminders reminds both parties of accepted appointments starting soon.
func SendScheduleReminders(schedules *services.ScheduleService) func() {
	return func() {
		n, err := schedules.SendReminders(context.Background())
		if err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Error checking for upcoming appointments")
			return
		}
		if n > 0 {
			logger.Log.Info().Int("count", n).Msg("Queued appointment reminders")
		}
	}
}

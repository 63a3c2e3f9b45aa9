package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/telecare/telehealth_api/notifications"
	"github.com/telecare/telehealth_api/services"
	"gorm.io/gorm"
)

type Deps struct {
	DB            *gorm.DB
	Schedules     *services.ScheduleService
	Subscriptions *services.SubscriptionService
	Balances      *services.BalanceService
	Dispatcher    *notifications.Dispatcher
}

// Register adds the recurring jobs to c. Times follow c's location.
func Register(c *cron.Cron, d Deps) error {
	specs := []struct {
		spec string
		job  func()
	}{
		{"@every 1m", DrainOutbox(d.Dispatcher)},
		{"0 0 * * 1", RollQuotaWindows(d.DB, d.Schedules.Quota())},
		{"*/5 * * * *", ExpirePayments(d.Subscriptions, d.Balances)},
		{"*/5 * * * *", SendScheduleReminders(d.Schedules)},
	}
	for _, s := range specs {
		if _, err := c.AddFunc(s.spec, s.job); err != nil {
			return fmt.Errorf("schedule %q: %w", s.spec, err)
		}
	}
	return nil
}

package jobs

import (
	"context"

	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/services"
)

// ExpirePayments closes stale checkout links, package and wallet alike, and returns lapsed
// doctors to the free plan.
func ExpirePayments(subs *services.SubscriptionService, balances *services.BalanceService) func() {
	return func() {
		ctx := context.Background()

		expired, err := subs.ExpireStale(ctx)
		if err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Error expiring pending payments")
		} else if expired > 0 {
			logger.Log.Info().Int64("count", expired).Msg("Marked pending payment(s) as expired")
		}

		if balances != nil {
			expired, err := balances.ExpireStale(ctx)
			if err != nil {
				logger.Log.Error().Err(err).Msg("🔥 Error expiring pending recharges")
			} else if expired > 0 {
				logger.Log.Info().Int64("count", expired).Msg("Marked pending recharge(s) as expired")
			}
		}

		lapsed, err := subs.LapseSubscriptions(ctx)
		if err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Error lapsing subscriptions")
		} else if lapsed > 0 {
			logger.Log.Info().Int("count", lapsed).Msg("Returned doctor(s) to the free package")
		}
	}
}

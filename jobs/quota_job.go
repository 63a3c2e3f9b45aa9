package jobs

import (
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/services"
	"gorm.io/gorm"
)

// RollQuotaWindows resets every doctor whose weekly window has ended.
func RollQuotaWindows(db *gorm.DB, quota *services.QuotaService) func() {
	return func() {
		n, err := quota.RollAll(db)
		if err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Error rolling schedule quotas")
			return
		}
		logger.Log.Info().Int64("count", n).Msg("✅ Weekly schedule quotas reset")
	}
}

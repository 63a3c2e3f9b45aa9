package database

import (
	"fmt"

	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDB() error {
	dsn := config.Config("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	level := gormlogger.Warn
	if config.Config("APP_ENV") == "production" {
		level = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	DB = db
	logger.Log.Info().Msg("✅ Database connected successfully")
	return nil
}

// Models lists every table the API owns, in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Doctor{},
		&models.Schedule{},
		&models.Notification{},
		&models.DispatchJob{},
		&models.PackagePayment{},
		&models.Feedback{},
		&models.Conversation{},
		&models.Message{},
		&models.Device{},
		&models.BalanceRecharge{},
		&models.Blog{},
		&models.BlogComment{},
		&models.BlogLike{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	// Accounts created before email verification existed never received a code.
	if err := db.Model(&models.User{}).
		Where("is_verified = ? AND email_verification_code IS NULL", false).
		Update("is_verified", true).Error; err != nil {
		return fmt.Errorf("backfill verified users: %w", err)
	}
	logger.Log.Info().Msg("✅ Database migration successful")
	return nil
}

// SeedAdmin creates the admin account from ADMIN_* settings unless it already exists.
func SeedAdmin(db *gorm.DB) error {
	adminEmail := config.Config("ADMIN_EMAIL")
	adminPassword := config.Config("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Log.Warn().Msg("⚠️ ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("check for admin user: %w", err)
	}
	if count > 0 {
		logger.Log.Info().Msg("Admin user already exists.")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	fullName := config.Config("ADMIN_FULL_NAME")
	if fullName == "" {
		fullName = "Administrator"
	}
	adminUser := models.User{
		FullName:   fullName,
		Email:      adminEmail,
		Password:   string(hashedPassword),
		Role:       models.RoleAdmin,
		IsVerified: true,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	logger.Log.Info().Msg("✅ Admin user seeded successfully")
	return nil
}

// NormalizeLegacyStatuses rewrites rows still carrying the old "booked" status:
// with a patient they become pending, without one they are back on offer.
func NormalizeLegacyStatuses(db *gorm.DB) (withPatient, withoutPatient int64, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Schedule{}).
			Where("status = ? AND patient_id IS NOT NULL", models.StatusBooked).
			Updates(map[string]any{"status": models.StatusPending, "is_available": false})
		if res.Error != nil {
			return res.Error
		}
		withPatient = res.RowsAffected

		res = tx.Model(&models.Schedule{}).
			Where("status = ? AND patient_id IS NULL", models.StatusBooked).
			Updates(map[string]any{"status": models.StatusAvailable, "is_available": true})
		if res.Error != nil {
			return res.Error
		}
		withoutPatient = res.RowsAffected
		return nil
	})
	return withPatient, withoutPatient, err
}

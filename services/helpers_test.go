package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Wednesday of the week 2026-10-12 .. 2026-10-18.
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type countingWaker struct {
	mu    sync.Mutex
	wakes int
}

func (w *countingWaker) Wake() {
	w.mu.Lock()
	w.wakes++
	w.mu.Unlock()
}

func (w *countingWaker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wakes
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	u := models.User{
		FullName: name,
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedDoctor(t *testing.T, db *gorm.DB, name string, weekly int) models.User {
	t.Helper()
	u := seedUser(t, db, name, models.RoleDoctor)
	d := models.Doctor{
		UserID:            u.ID,
		DoctorType:        "general",
		ApplicationStatus: models.ApplicationAccepted,
	}
	if err := db.Omit(clause.Associations).Create(&d).Error; err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	if err := db.Model(&models.Doctor{}).Where("user_id = ?", u.ID).
		Update("schedule_limits_weekly", weekly).Error; err != nil {
		t.Fatalf("set weekly limit: %v", err)
	}
	return u
}

func loadDoctor(t *testing.T, db *gorm.DB, id uuid.UUID) models.Doctor {
	t.Helper()
	var d models.Doctor
	if err := db.First(&d, "user_id = ?", id).Error; err != nil {
		t.Fatalf("load doctor: %v", err)
	}
	return d
}

func loadSchedule(t *testing.T, db *gorm.DB, id uuid.UUID) models.Schedule {
	t.Helper()
	var s models.Schedule
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	return s
}

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

// QuotaService owns the weekly schedule quota stored in doctors.schedule_limits_*.
// Every reset, increment and decrement of the window goes through it.
type QuotaService struct {
	now func() time.Time
	loc *time.Location
}

type QuotaSnapshot struct {
	Weekly     int        `json:"weekly"`
	Used       int        `json:"used"`
	Remaining  int        `json:"remaining"`
	ResetDate  *time.Time `json:"reset_date"`
	Package    string     `json:"package"`
	IsPriority bool       `json:"is_priority"`
}

func NewQuotaService(now func() time.Time, loc *time.Location) *QuotaService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QuotaService{now: now, loc: loc}
}

func (q *QuotaService) clock() time.Time {
	return q.now().In(q.loc)
}

// Roll resets the window of doctor when its reset date is unset or already reached,
// then refreshes doctor.ScheduleLimits from the database.
func (q *QuotaService) Roll(tx *gorm.DB, doctor *models.Doctor) error {
	now := q.clock()
	rd := doctor.ScheduleLimits.ResetDate
	if rd != nil && rd.After(now) {
		return nil
	}

	next := NextReset(now)
	err := tx.Model(&models.Doctor{}).
		Where("user_id = ?", doctor.UserID).
		Where("schedule_limits_reset_date IS NULL OR schedule_limits_reset_date <= ?", now).
		Updates(map[string]any{
			"schedule_limits_used":       0,
			"schedule_limits_reset_date": next,
		}).Error
	if err != nil {
		return apperr.Internal("Failed to reset weekly quota", err)
	}

	var fresh models.Doctor
	if err := tx.Select("user_id", "schedule_limits_weekly", "schedule_limits_used", "schedule_limits_reset_date").
		First(&fresh, "user_id = ?", doctor.UserID).Error; err != nil {
		return apperr.Internal("Failed to reload weekly quota", err)
	}
	doctor.ScheduleLimits = fresh.ScheduleLimits
	return nil
}

// Reserve takes one unit of quota. It never lets used exceed weekly.
func (q *QuotaService) Reserve(tx *gorm.DB, doctorID uuid.UUID) error {
	res := tx.Model(&models.Doctor{}).
		Where("user_id = ? AND schedule_limits_used < schedule_limits_weekly", doctorID).
		Update("schedule_limits_used", gorm.Expr("schedule_limits_used + 1"))
	if res.Error != nil {
		return apperr.Internal("Failed to update weekly quota", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Weekly schedule limit reached")
	}
	return nil
}

// Release gives one unit back, floored at zero.
func (q *QuotaService) Release(tx *gorm.DB, doctorID uuid.UUID) error {
	err := tx.Model(&models.Doctor{}).
		Where("user_id = ? AND schedule_limits_used > 0", doctorID).
		Update("schedule_limits_used", gorm.Expr("schedule_limits_used - 1")).Error
	if err != nil {
		return apperr.Internal("Failed to update weekly quota", err)
	}
	return nil
}

// ApplyPackage installs the weekly limit of pkg and starts a fresh window.
func (q *QuotaService) ApplyPackage(tx *gorm.DB, doctorID uuid.UUID, pkg string) error {
	benefit, ok := PackageBenefits[pkg]
	if !ok {
		return apperr.Validation("Unknown package")
	}
	next := NextReset(q.clock())
	err := tx.Model(&models.Doctor{}).
		Where("user_id = ?", doctorID).
		Updates(map[string]any{
			"schedule_limits_weekly":     benefit.ScheduleLimit,
			"schedule_limits_used":       0,
			"schedule_limits_reset_date": next,
			"is_priority":                benefit.IsPriority,
		}).Error
	if err != nil {
		return apperr.Internal("Failed to apply package quota", err)
	}
	return nil
}

// Downgrade drops a doctor back to the free limit when a subscription lapses. Usage in the
// current window is kept.
func (q *QuotaService) Downgrade(tx *gorm.DB, doctorID uuid.UUID) error {
	err := tx.Model(&models.Doctor{}).
		Where("user_id = ?", doctorID).
		Updates(map[string]any{
			"schedule_limits_weekly": PackageBenefits[models.PackageFree].ScheduleLimit,
			"is_priority":            false,
		}).Error
	if err != nil {
		return apperr.Internal("Failed to downgrade weekly quota", err)
	}
	return nil
}

// Snapshot rolls the window if due and reports the doctor's current usage.
func (q *QuotaService) Snapshot(db *gorm.DB, doctorID uuid.UUID) (*QuotaSnapshot, error) {
	var snap *QuotaSnapshot
	err := db.Transaction(func(tx *gorm.DB) error {
		var doctor models.Doctor
		if err := tx.First(&doctor, "user_id = ?", doctorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Doctor not found")
			}
			return apperr.Internal("Failed to load doctor", err)
		}
		if err := q.Roll(tx, &doctor); err != nil {
			return err
		}
		snap = snapshotOf(&doctor)
		return nil
	})
	return snap, err
}

// RollAll resets every stale window. Used by the weekly job.
func (q *QuotaService) RollAll(db *gorm.DB) (int64, error) {
	now := q.clock()
	res := db.Model(&models.Doctor{}).
		Where("schedule_limits_reset_date IS NULL OR schedule_limits_reset_date <= ?", now).
		Updates(map[string]any{
			"schedule_limits_used":       0,
			"schedule_limits_reset_date": NextReset(now),
		})
	return res.RowsAffected, res.Error
}

func snapshotOf(d *models.Doctor) *QuotaSnapshot {
	remaining := d.ScheduleLimits.Weekly - d.ScheduleLimits.Used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaSnapshot{
		Weekly:     d.ScheduleLimits.Weekly,
		Used:       d.ScheduleLimits.Used,
		Remaining:  remaining,
		ResetDate:  d.ScheduleLimits.ResetDate,
		Package:    d.SubscriptionPackage,
		IsPriority: d.IsPriority,
	}
}

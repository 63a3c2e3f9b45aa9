package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inactiveStatuses never block a time range.
var inactiveStatuses = []models.ScheduleStatus{models.StatusCancelled, models.StatusRejected}

// heldStatuses mean a patient currently holds the slot.
var heldStatuses = []models.ScheduleStatus{models.StatusPending, models.StatusAccepted, models.StatusBooked}

type ScheduleFilter struct {
	DoctorID      *uuid.UUID
	PatientID     *uuid.UUID
	Statuses      []models.ScheduleStatus
	Date          *datatypes.Date
	From          *datatypes.Date
	To            *datatypes.Date
	OnlyOpen      bool
	DoctorType    string
	PriorityFirst bool
	Limit         int
	Offset        int
}

type ScheduleRepository interface {
	WithTx(tx *gorm.DB) ScheduleRepository
	// GetByID loads a schedule with doctor and patient users.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	// Lock loads a schedule with a row lock for the rest of the transaction.
	Lock(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	Create(ctx context.Context, s *models.Schedule) error
	// ListActiveOnDay returns the doctor's non-cancelled, non-rejected schedules on date.
	ListActiveOnDay(ctx context.Context, doctorID uuid.UUID, date datatypes.Date, exclude *uuid.UUID) ([]models.Schedule, error)
	// PatientHolds reports whether the patient already holds a slot with the same date and times.
	PatientHolds(ctx context.Context, patientID uuid.UUID, date datatypes.Date, start, end string) (bool, error)
	// CompareAndSet applies updates only while the row is still in one of from.
	// It returns false when no row matched.
	CompareAndSet(ctx context.Context, id uuid.UUID, from []models.ScheduleStatus, updates map[string]any, conds ...clause.Expression) (bool, error)
	// DeleteIf removes the row only while it is still in one of from.
	DeleteIf(ctx context.Context, id uuid.UUID, from []models.ScheduleStatus) (bool, error)
	List(ctx context.Context, f ScheduleFilter) ([]models.Schedule, int64, error)
	// ExistsWithStatus reports whether patient and doctor share a schedule in status.
	ExistsWithStatus(ctx context.Context, patientID, doctorID uuid.UUID, status models.ScheduleStatus) (bool, error)
	CountByStatus(ctx context.Context) (map[models.ScheduleStatus]int64, error)
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) WithTx(tx *gorm.DB) ScheduleRepository {
	return &GormScheduleRepository{db: tx}
}

func (r *GormScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Patient").
		First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormScheduleRepository) Lock(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *GormScheduleRepository) ListActiveOnDay(
	ctx context.Context,
	doctorID uuid.UUID,
	date datatypes.Date,
	exclude *uuid.UUID,
) ([]models.Schedule, error) {
	q := r.db.WithContext(ctx).
		Where("doctor_id = ? AND date = ?", doctorID, date).
		Where("status NOT IN ?", inactiveStatuses)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var out []models.Schedule
	if err := q.Order("start_time ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormScheduleRepository) PatientHolds(
	ctx context.Context,
	patientID uuid.UUID,
	date datatypes.Date,
	start, end string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("patient_id = ? AND date = ? AND start_time = ? AND end_time = ?", patientID, date, start, end).
		Where("status IN ?", heldStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *GormScheduleRepository) CompareAndSet(
	ctx context.Context,
	id uuid.UUID,
	from []models.ScheduleStatus,
	updates map[string]any,
	conds ...clause.Expression,
) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND status IN ?", id, from)
	for _, c := range conds {
		q = q.Where(c)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormScheduleRepository) DeleteIf(ctx context.Context, id uuid.UUID, from []models.ScheduleStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, from).
		Delete(&models.Schedule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormScheduleRepository) List(ctx context.Context, f ScheduleFilter) ([]models.Schedule, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Schedule{})

	if f.DoctorID != nil {
		q = q.Where("schedules.doctor_id = ?", *f.DoctorID)
	}
	if f.PatientID != nil {
		q = q.Where("schedules.patient_id = ?", *f.PatientID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("schedules.status IN ?", f.Statuses)
	}
	if f.Date != nil {
		q = q.Where("schedules.date = ?", *f.Date)
	}
	if f.From != nil {
		q = q.Where("schedules.date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("schedules.date <= ?", *f.To)
	}
	if f.OnlyOpen {
		q = q.Where("schedules.is_available = ?", true)
	}
	if f.DoctorType != "" || f.PriorityFirst {
		q = q.Joins("JOIN doctors ON doctors.user_id = schedules.doctor_id")
		if f.DoctorType != "" {
			q = q.Where("doctors.doctor_type = ?", f.DoctorType)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.PriorityFirst {
		q = q.Order("doctors.is_priority DESC")
	}
	q = q.Order("schedules.date ASC").Order("schedules.start_time ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var out []models.Schedule
	if err := q.Select("schedules.*").Preload("Doctor").Preload("Patient").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormScheduleRepository) ExistsWithStatus(
	ctx context.Context,
	patientID, doctorID uuid.UUID,
	status models.ScheduleStatus,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("patient_id = ? AND doctor_id = ? AND status = ?", patientID, doctorID, status).
		Count(&count).Error
	return count > 0, err
}

func (r *GormScheduleRepository) CountByStatus(ctx context.Context) (map[models.ScheduleStatus]int64, error) {
	var rows []struct {
		Status models.ScheduleStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.ScheduleStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/repository"
	"gorm.io/datatypes"
)

// ScheduleQuery carries the optional filters accepted by the list endpoints.
type ScheduleQuery struct {
	Status     string
	Date       *datatypes.Date
	From       *datatypes.Date
	To         *datatypes.Date
	DoctorID   *uuid.UUID
	DoctorType string
	Page       int
	Limit      int
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

type SchedulePage struct {
	Schedules  []models.Schedule `json:"schedules"`
	Pagination Pagination        `json:"pagination"`
}

func (q ScheduleQuery) statuses() ([]models.ScheduleStatus, error) {
	if q.Status == "" {
		return nil, nil
	}
	if !ValidStatus(q.Status) {
		return nil, apperr.Validation("Invalid status filter").With("status", q.Status)
	}
	return []models.ScheduleStatus{models.ScheduleStatus(q.Status)}, nil
}

func (s *ScheduleService) ListByDoctor(ctx context.Context, doctorID uuid.UUID, q ScheduleQuery) ([]models.Schedule, error) {
	statuses, err := q.statuses()
	if err != nil {
		return nil, err
	}
	out, _, err := s.repo.List(ctx, repository.ScheduleFilter{
		DoctorID: &doctorID,
		Statuses: statuses,
		Date:     q.Date,
		From:     q.From,
		To:       q.To,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch schedules", err)
	}
	return out, nil
}

// ListPending returns registrations waiting for the doctor's answer.
func (s *ScheduleService) ListPending(ctx context.Context, doctorID uuid.UUID) ([]models.Schedule, error) {
	out, _, err := s.repo.List(ctx, repository.ScheduleFilter{
		DoctorID: &doctorID,
		Statuses: []models.ScheduleStatus{models.StatusPending},
	})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch pending schedules", err)
	}
	return out, nil
}

// ListAvailable returns bookable slots from today on, priority doctors first.
func (s *ScheduleService) ListAvailable(ctx context.Context, q ScheduleQuery) ([]models.Schedule, error) {
	today := s.today()
	f := repository.ScheduleFilter{
		DoctorID:      q.DoctorID,
		Statuses:      []models.ScheduleStatus{models.StatusAvailable},
		OnlyOpen:      true,
		From:          &today,
		Date:          q.Date,
		DoctorType:    q.DoctorType,
		PriorityFirst: true,
	}
	out, _, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch available schedules", err)
	}
	return out, nil
}

func (s *ScheduleService) ListAll(ctx context.Context, q ScheduleQuery) (*SchedulePage, error) {
	statuses, err := q.statuses()
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(q.Page, q.Limit, 10, 100)

	out, total, err := s.repo.List(ctx, repository.ScheduleFilter{
		DoctorID: q.DoctorID,
		Statuses: statuses,
		Date:     q.Date,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch schedules", err)
	}
	return &SchedulePage{
		Schedules:  out,
		Pagination: NewPagination(total, page, limit),
	}, nil
}

// ListRegistered returns the schedules a patient holds or held.
func (s *ScheduleService) ListRegistered(ctx context.Context, patientID uuid.UUID, q ScheduleQuery) ([]models.Schedule, error) {
	statuses, err := q.statuses()
	if err != nil {
		return nil, err
	}
	out, _, err := s.repo.List(ctx, repository.ScheduleFilter{
		PatientID: &patientID,
		Statuses:  statuses,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch registered schedules", err)
	}
	return out, nil
}

func (s *ScheduleService) CountByStatus(ctx context.Context) (map[models.ScheduleStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

func NewPagination(total int64, page, limit int) Pagination {
	return Pagination{
		Total: total,
		Page:  page,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
		Limit: limit,
	}
}

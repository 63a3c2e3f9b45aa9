package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

type FeedbackService struct {
	db     *gorm.DB
	outbox *Outbox
}

func NewFeedbackService(db *gorm.DB, outbox *Outbox) *FeedbackService {
	return &FeedbackService{db: db, outbox: outbox}
}

type CreateFeedbackInput struct {
	ScheduleID  uuid.UUID
	Rating      int
	Comment     string
	IsAnonymous bool
}

type FeedbackStats struct {
	Total        int64         `json:"total"`
	Average      float64       `json:"average"`
	Distribution map[int]int64 `json:"distribution"`
}

const maxCommentLength = 500

// Create records the patient's rating of a completed schedule and refreshes the
// doctor's average.
func (s *FeedbackService) Create(ctx context.Context, patientID uuid.UUID, in CreateFeedbackInput) (*models.Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return nil, apperr.Validation("Comment must be at most 500 characters")
	}

	var fb *models.Feedback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sched models.Schedule
		if err := tx.First(&sched, "id = ?", in.ScheduleID).Error; err != nil {
			return notFoundOr(err, "Schedule not found")
		}
		if sched.PatientID == nil || *sched.PatientID != patientID {
			return apperr.Authorization("You cannot review this schedule")
		}
		if sched.Status != models.StatusCompleted {
			return apperr.Validation("Only completed schedules can be reviewed")
		}

		var existing int64
		if err := tx.Model(&models.Feedback{}).Where("schedule_id = ?", sched.ID).Count(&existing).Error; err != nil {
			return apperr.Internal("Failed to check feedback", err)
		}
		if existing > 0 {
			return apperr.Conflict("You have already reviewed this schedule")
		}

		fb = &models.Feedback{
			ScheduleID:  sched.ID,
			DoctorID:    sched.DoctorID,
			PatientID:   patientID,
			Rating:      in.Rating,
			Comment:     comment,
			IsAnonymous: in.IsAnonymous,
		}
		if err := tx.Create(fb).Error; err != nil {
			return apperr.Internal("Failed to create feedback", err)
		}

		if err := recomputeRating(tx, sched.DoctorID); err != nil {
			return err
		}

		return s.outbox.Enqueue(tx, Notice{
			RecipientID: sched.DoctorID,
			Type:        models.NotifyFeedbackReceived,
			Message:     fmt.Sprintf("You received a new %d-star review from a patient", in.Rating),
			ScheduleID:  &sched.ID,
			Data:        map[string]any{"feedback_id": fb.ID.String(), "rating": in.Rating},
			Push:        true,
			Realtime:    true,
		})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return fb, nil
}

func recomputeRating(tx *gorm.DB, doctorID uuid.UUID) error {
	var avg float64
	if err := tx.Model(&models.Feedback{}).
		Where("doctor_id = ?", doctorID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error; err != nil {
		return apperr.Internal("Failed to compute rating", err)
	}
	if err := tx.Model(&models.Doctor{}).
		Where("user_id = ?", doctorID).
		Update("avg_rating", avg).Error; err != nil {
		return apperr.Internal("Failed to update rating", err)
	}
	return nil
}

func (s *FeedbackService) BySchedule(ctx context.Context, scheduleID uuid.UUID) (*models.Feedback, error) {
	var fb models.Feedback
	if err := s.db.WithContext(ctx).Preload("Patient").First(&fb, "schedule_id = ?", scheduleID).Error; err != nil {
		return nil, notFoundOr(err, "No feedback for this schedule")
	}
	maskAnonymous(&fb)
	return &fb, nil
}

func (s *FeedbackService) ForDoctor(ctx context.Context, doctorID uuid.UUID, page, limit int) ([]models.Feedback, Pagination, error) {
	return s.list(ctx, &doctorID, 0, page, limit)
}

// List is the admin view; rating 0 means any.
func (s *FeedbackService) List(ctx context.Context, rating, page, limit int) ([]models.Feedback, Pagination, error) {
	return s.list(ctx, nil, rating, page, limit)
}

func (s *FeedbackService) list(ctx context.Context, doctorID *uuid.UUID, rating, page, limit int) ([]models.Feedback, Pagination, error) {
	page, limit = normalizePage(page, limit, 10, 100)

	q := s.db.WithContext(ctx).Model(&models.Feedback{})
	if doctorID != nil {
		q = q.Where("doctor_id = ?", *doctorID)
	}
	if rating > 0 {
		q = q.Where("rating = ?", rating)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.Internal("Failed to fetch feedback", err)
	}
	var out []models.Feedback
	if err := q.Preload("Patient").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&out).Error; err != nil {
		return nil, Pagination{}, apperr.Internal("Failed to fetch feedback", err)
	}
	for i := range out {
		maskAnonymous(&out[i])
	}
	return out, NewPagination(total, page, limit), nil
}

func (s *FeedbackService) Stats(ctx context.Context, doctorID *uuid.UUID) (*FeedbackStats, error) {
	q := s.db.WithContext(ctx).Model(&models.Feedback{})
	if doctorID != nil {
		q = q.Where("doctor_id = ?", *doctorID)
	}

	var rows []struct {
		Rating int
		Count  int64
	}
	if err := q.Select("rating, count(*) as count").Group("rating").Scan(&rows).Error; err != nil {
		return nil, apperr.Internal("Failed to compute feedback stats", err)
	}

	stats := &FeedbackStats{Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int64
	for _, r := range rows {
		stats.Distribution[r.Rating] = r.Count
		stats.Total += r.Count
		sum += int64(r.Rating) * r.Count
	}
	if stats.Total > 0 {
		stats.Average = float64(sum) / float64(stats.Total)
	}
	return stats, nil
}

func maskAnonymous(fb *models.Feedback) {
	if fb.IsAnonymous {
		fb.Patient = nil
	}
}

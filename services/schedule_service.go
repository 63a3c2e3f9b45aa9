package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleService is the schedule lifecycle: creation under the weekly quota, conflict
// detection, and every status transition with its notifications.
type ScheduleService struct {
	db     *gorm.DB
	repo   repository.ScheduleRepository
	quota  *QuotaService
	outbox *Outbox
	now    func() time.Time
	loc    *time.Location
}

// Option configures a ScheduleService.
type Option func(*ScheduleService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ScheduleService) { s.now = now }
}

// WithLocation sets the zone calendar days and weeks are computed in. UTC by default.
func WithLocation(loc *time.Location) Option {
	return func(s *ScheduleService) { s.loc = loc }
}

// NewScheduleService wires the service to db; outbox receives every notice a transition emits.
func NewScheduleService(db *gorm.DB, outbox *Outbox, opts ...Option) *ScheduleService {
	s := &ScheduleService{
		db:     db,
		repo:   repository.NewGormScheduleRepository(db),
		outbox: outbox,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quota = NewQuotaService(s.now, s.loc)
	return s
}

// Quota exposes the weekly window owner shared with the subscription and doctor services.
func (s *ScheduleService) Quota() *QuotaService { return s.quota }

func (s *ScheduleService) clock() time.Time { return s.now().In(s.loc) }

func (s *ScheduleService) today() datatypes.Date { return models.DateOf(s.clock()) }

// CreateScheduleInput is a new slot as the doctor submitted it. Times are HH:mm.
type CreateScheduleInput struct {
	Date            time.Time
	StartTime       string
	EndTime         string
	AppointmentType string
	MeetingLink     *string
	Notes           *string
}

// CreateScheduleResult is the stored schedule and the quota left after it.
type CreateScheduleResult struct {
	Schedule *models.Schedule `json:"schedule"`
	Quota    QuotaSnapshot    `json:"quota"`
}

// Create adds an available slot to the current week and consumes one quota unit.
func (s *ScheduleService) Create(ctx context.Context, doctorID uuid.UUID, in CreateScheduleInput) (*CreateScheduleResult, error) {
	now := s.clock()
	day := StartOfDay(time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, s.loc))

	var result CreateScheduleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var doctor models.Doctor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doctor, "user_id = ?", doctorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Doctor not found")
			}
			return apperr.Internal("Failed to load doctor", err)
		}

		if err := s.quota.Roll(tx, &doctor); err != nil {
			return err
		}

		weekStart, weekEnd := WeekBounds(now)
		if day.Before(weekStart) || day.After(weekEnd) {
			return apperr.Validation("Schedules can only be created for the current week").
				With("week_start", weekStart.Format("2006-01-02")).
				With("week_end", weekEnd.Format("2006-01-02"))
		}

		limits := doctor.ScheduleLimits
		if limits.Used >= limits.Weekly {
			return apperr.Conflict("Weekly schedule limit reached").
				With("used", limits.Used).
				With("limit", limits.Weekly).
				With("reset_date", limits.ResetDate)
		}

		start, end, err := parseSlot(in.StartTime, in.EndTime)
		if err != nil {
			return err
		}

		if !At(day, end).After(now) {
			return apperr.Validation("Cannot create a schedule that has already ended")
		}

		appointmentType, link, err := resolveMeeting(in.AppointmentType, in.MeetingLink, "", nil)
		if err != nil {
			return err
		}

		date := models.DateOf(day)
		if err := s.checkOverlap(ctx, repo, doctorID, date, start, end, nil); err != nil {
			return err
		}

		if err := s.quota.Reserve(tx, doctorID); err != nil {
			return err
		}

		sched := &models.Schedule{
			DoctorID:        doctorID,
			Date:            date,
			StartTime:       FormatClock(start),
			EndTime:         FormatClock(end),
			Status:          models.StatusAvailable,
			IsAvailable:     true,
			AppointmentType: appointmentType,
			MeetingLink:     link,
			Notes:           in.Notes,
		}
		if err := repo.Create(ctx, sched); err != nil {
			return apperr.Internal("Failed to create schedule", err)
		}

		doctor.ScheduleLimits.Used++
		result.Schedule = sched
		result.Quota = *snapshotOf(&doctor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateScheduleInput holds the fields to change; nil means keep.
type UpdateScheduleInput struct {
	Date            *time.Time
	StartTime       *string
	EndTime         *string
	AppointmentType *string
	MeetingLink     *string
	Notes           *string
}

// Update edits an available schedule and re-runs the slot checks against the result.
func (s *ScheduleService) Update(ctx context.Context, doctorID, scheduleID uuid.UUID, in UpdateScheduleInput) (*models.Schedule, error) {
	now := s.clock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.lockOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionUpdate); err != nil {
			return apperr.Conflict("Only available schedules can be updated").With("status", current.Status)
		}

		day := current.Day(s.loc)
		if in.Date != nil {
			day = time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, s.loc)
		}
		startTime, endTime := current.StartTime, current.EndTime
		if in.StartTime != nil {
			startTime = *in.StartTime
		}
		if in.EndTime != nil {
			endTime = *in.EndTime
		}

		start, end, err := parseSlot(startTime, endTime)
		if err != nil {
			return err
		}
		if !At(day, end).After(now) {
			return apperr.Validation("Cannot move a schedule into the past")
		}

		reqType := ""
		if in.AppointmentType != nil {
			reqType = *in.AppointmentType
		}
		appointmentType, link, err := resolveMeeting(reqType, in.MeetingLink, current.AppointmentType, current.MeetingLink)
		if err != nil {
			return err
		}

		date := models.DateOf(day)
		if err := s.checkOverlap(ctx, repo, doctorID, date, start, end, &current.ID); err != nil {
			return err
		}

		updates := map[string]any{
			"date":             date,
			"start_time":       FormatClock(start),
			"end_time":         FormatClock(end),
			"appointment_type": appointmentType,
			"meeting_link":     link,
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionUpdate), updates)
		if err != nil {
			return apperr.Internal("Failed to update schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while updating, try again")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scheduleID)
}

// Delete removes an available schedule and gives its quota unit back.
func (s *ScheduleService) Delete(ctx context.Context, doctorID, scheduleID uuid.UUID) (*QuotaSnapshot, error) {
	var snap *QuotaSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.lockOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionDelete); err != nil {
			return apperr.Conflict("Only available schedules can be deleted").With("status", current.Status)
		}

		ok, err := repo.DeleteIf(ctx, scheduleID, SourcesOf(ActionDelete))
		if err != nil {
			return apperr.Internal("Failed to delete schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while deleting, try again")
		}
		if err := s.quota.Release(tx, doctorID); err != nil {
			return err
		}

		var doctor models.Doctor
		if err := tx.First(&doctor, "user_id = ?", doctorID).Error; err != nil {
			return apperr.Internal("Failed to load doctor", err)
		}
		snap = snapshotOf(&doctor)
		return nil
	})
	return snap, err
}

// Register books an available schedule for patientID. The available -> pending step is a
// single conditional update, so two patients racing for one slot cannot both win.
func (s *ScheduleService) Register(ctx context.Context, patientID, scheduleID uuid.UUID) (*models.Schedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetByID(ctx, scheduleID)
		if err != nil {
			return notFoundOr(err, "Schedule not found or not available")
		}

		var patient models.User
		if err := tx.First(&patient, "id = ? AND is_deleted = ?", patientID, false).Error; err != nil {
			return notFoundOr(err, "User not found")
		}

		if _, err := Transition(current.Status, ActionRegister); err != nil || !current.IsAvailable {
			return apperr.NotFound("Schedule not found or not available")
		}

		held, err := repo.PatientHolds(ctx, patientID, current.Date, current.StartTime, current.EndTime)
		if err != nil {
			return apperr.Internal("Failed to check existing bookings", err)
		}
		if held {
			return apperr.Conflict("You already have a booking at this time")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionRegister),
			map[string]any{
				"status":       models.StatusPending,
				"patient_id":   patientID,
				"is_available": false,
			},
			clause.Expr{SQL: "is_available = ?", Vars: []any{true}},
			clause.Expr{SQL: "date >= ?", Vars: []any{s.today()}},
		)
		if err != nil {
			return apperr.Internal("Failed to register schedule", err)
		}
		if !ok {
			return apperr.NotFound("Schedule not found or not available")
		}

		current.Status = models.StatusPending
		current.PatientID = &patientID
		current.IsAvailable = false
		current.Patient = &patient

		docSubj, docHTML := registerEmailForDoctor(current, current.Doctor, &patient)
		patSubj, patHTML := registerEmailForPatient(current, current.Doctor, &patient)
		return s.outbox.Enqueue(tx,
			Notice{
				RecipientID:  current.DoctorID,
				Type:         models.NotifyScheduleRegister,
				Message:      fmt.Sprintf("%s registered for your schedule on %s", patient.FullName, slotLabel(current)),
				ScheduleID:   &current.ID,
				Data:         scheduleData(current),
				EmailSubject: docSubj,
				EmailHTML:    docHTML,
				Push:         true,
				Realtime:     true,
			},
			Notice{
				RecipientID:  patientID,
				Type:         models.NotifyBooking,
				Message:      fmt.Sprintf("Your booking for %s is waiting for the doctor's confirmation", slotLabel(current)),
				ScheduleID:   &current.ID,
				Data:         scheduleData(current),
				EmailSubject: patSubj,
				EmailHTML:    patHTML,
				Push:         true,
				Realtime:     true,
			},
		)
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// CancelPending withdraws a registration the doctor has not answered yet.
func (s *ScheduleService) CancelPending(ctx context.Context, patientID, scheduleID uuid.UUID) (*models.Schedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadHeldBy(ctx, repo, scheduleID, patientID)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionCancelPending); err != nil {
			return err
		}
		if current.Day(s.loc).Before(StartOfDay(s.clock())) {
			return apperr.Validation("Cannot cancel a schedule in the past")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionCancelPending),
			releaseUpdates(),
			clause.Expr{SQL: "patient_id = ?", Vars: []any{patientID}},
		)
		if err != nil {
			return apperr.Internal("Failed to cancel registration", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while cancelling, try again")
		}

		return s.outbox.Enqueue(tx, Notice{
			RecipientID: current.DoctorID,
			Type:        models.NotifyCancel,
			Message:     fmt.Sprintf("%s withdrew the registration for %s", current.Patient.FullName, slotLabel(current)),
			ScheduleID:  &current.ID,
			Data:        scheduleData(current),
			Push:        true,
			Realtime:    true,
		})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// Cancel releases a pending or accepted registration. The reason travels with the
// notifications and is not kept on the reopened slot.
func (s *ScheduleService) Cancel(ctx context.Context, patientID, scheduleID uuid.UUID, reason string) (*models.Schedule, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Cancel reason is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadHeldBy(ctx, repo, scheduleID, patientID)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionCancel); err != nil {
			return err
		}
		if current.Day(s.loc).Before(StartOfDay(s.clock())) {
			return apperr.Validation("Cannot cancel a schedule in the past")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionCancel),
			releaseUpdates(),
			clause.Expr{SQL: "patient_id = ?", Vars: []any{patientID}},
		)
		if err != nil {
			return apperr.Internal("Failed to cancel schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while cancelling, try again")
		}

		var admins []models.User
		if err := tx.Where("role = ? AND is_deleted = ?", models.RoleAdmin, false).Find(&admins).Error; err != nil {
			return apperr.Internal("Failed to load admins", err)
		}

		subj, body := cancelEmailForDoctor(current, current.Doctor, current.Patient, reason)
		notices := []Notice{{
			RecipientID:  current.DoctorID,
			Type:         models.NotifyScheduleCancel,
			Message:      fmt.Sprintf("%s cancelled the appointment on %s", current.Patient.FullName, slotLabel(current)),
			ScheduleID:   &current.ID,
			CancelReason: &reason,
			Data:         withData(scheduleData(current), "cancel_reason", reason),
			EmailSubject: subj,
			EmailHTML:    body,
			Push:         true,
			Realtime:     true,
		}}
		for _, a := range admins {
			subj, body := cancelEmailForAdmin(current, current.Doctor, current.Patient, reason)
			notices = append(notices, Notice{RecipientID: a.ID, EmailSubject: subj, EmailHTML: body})
		}
		return s.outbox.Enqueue(tx, notices...)
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// Accept confirms a pending registration.
func (s *ScheduleService) Accept(ctx context.Context, doctorID, scheduleID uuid.UUID) (*models.Schedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		to, err := Transition(current.Status, ActionAccept)
		if err != nil {
			return err
		}
		if current.PatientID == nil || current.Patient == nil {
			return apperr.Conflict("Schedule has no registered patient")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionAccept), map[string]any{
			"status":       to,
			"is_available": false,
		})
		if err != nil {
			return apperr.Internal("Failed to accept schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while accepting, try again")
		}
		current.Status = to

		docSubj, docHTML := acceptEmail(current, current.Doctor, current.Patient, true)
		patSubj, patHTML := acceptEmail(current, current.Patient, current.Doctor, false)
		return s.outbox.Enqueue(tx,
			Notice{
				RecipientID:  *current.PatientID,
				Type:         models.NotifyScheduleAccept,
				Message:      fmt.Sprintf("Dr. %s confirmed your appointment on %s", current.Doctor.FullName, slotLabel(current)),
				ScheduleID:   &current.ID,
				Data:         scheduleData(current),
				EmailSubject: patSubj,
				EmailHTML:    patHTML,
				Push:         true,
				Realtime:     true,
			},
			Notice{
				RecipientID:  doctorID,
				Type:         models.NotifyScheduleAccept,
				Message:      fmt.Sprintf("You confirmed the appointment with %s on %s", current.Patient.FullName, slotLabel(current)),
				ScheduleID:   &current.ID,
				Data:         scheduleData(current),
				EmailSubject: docSubj,
				EmailHTML:    docHTML,
				Realtime:     true,
			},
		)
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// Reject answers a pending registration with a refusal. The slot returns to the pool;
// the quota unit stays consumed.
func (s *ScheduleService) Reject(ctx context.Context, doctorID, scheduleID uuid.UUID, reason string) (*models.Schedule, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Rejection reason is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		to, err := Transition(current.Status, ActionReject)
		if err != nil {
			return err
		}
		if current.PatientID == nil || current.Patient == nil {
			return apperr.Conflict("Schedule has no registered patient")
		}
		patientID := *current.PatientID

		updates := releaseUpdates()
		updates["status"] = to
		updates["rejected_reason"] = reason
		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionReject), updates)
		if err != nil {
			return apperr.Internal("Failed to reject schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while rejecting, try again")
		}

		subj, body := rejectEmail(current, current.Doctor, current.Patient, reason)
		return s.outbox.Enqueue(tx, Notice{
			RecipientID:  patientID,
			Type:         models.NotifyScheduleReject,
			Message:      fmt.Sprintf("Dr. %s declined your appointment on %s: %s", current.Doctor.FullName, slotLabel(current), reason),
			ScheduleID:   &current.ID,
			Data:         withData(scheduleData(current), "rejected_reason", reason),
			EmailSubject: subj,
			EmailHTML:    body,
			Push:         true,
			Realtime:     true,
		})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// Complete closes an accepted appointment and invites the patient to leave feedback.
func (s *ScheduleService) Complete(ctx context.Context, doctorID, scheduleID uuid.UUID) (*models.Schedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		to, err := Transition(current.Status, ActionComplete)
		if err != nil {
			return err
		}
		if current.PatientID == nil || current.Patient == nil {
			return apperr.Conflict("Schedule has no registered patient")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionComplete), map[string]any{
			"status":       to,
			"is_available": false,
		})
		if err != nil {
			return apperr.Internal("Failed to complete schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while completing, try again")
		}
		current.Status = to

		data := withData(scheduleData(current), "can_feedback", true)
		return s.outbox.Enqueue(tx,
			Notice{
				RecipientID: *current.PatientID,
				Type:        models.NotifyScheduleCompleted,
				Message:     fmt.Sprintf("Your appointment with Dr. %s is complete. Tell us how it went by leaving feedback.", current.Doctor.FullName),
				ScheduleID:  &current.ID,
				Data:        data,
				Push:        true,
				Realtime:    true,
				Event:       "schedule_completed",
			},
			Notice{
				RecipientID: doctorID,
				Type:        models.NotifyScheduleCompleted,
				Message:     fmt.Sprintf("Appointment with %s on %s marked as completed", current.Patient.FullName, slotLabel(current)),
				ScheduleID:  &current.ID,
				Data:        scheduleData(current),
				Realtime:    true,
			},
		)
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, scheduleID)
}

// Reactivate puts a cancelled schedule back on offer. It does not touch the quota.
func (s *ScheduleService) Reactivate(ctx context.Context, doctorID, scheduleID uuid.UUID) (*models.Schedule, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadOwned(ctx, repo, scheduleID, doctorID)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionReactivate); err != nil {
			return err
		}
		if current.Day(s.loc).Before(StartOfDay(s.clock())) {
			return apperr.Validation("Cannot reactivate a schedule in the past")
		}

		ok, err := repo.CompareAndSet(ctx, scheduleID, SourcesOf(ActionReactivate), releaseUpdates())
		if err != nil {
			return apperr.Internal("Failed to reactivate schedule", err)
		}
		if !ok {
			return apperr.Conflict("Schedule changed while reactivating, try again")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scheduleID)
}

// Get loads a schedule with its doctor and patient.
func (s *ScheduleService) Get(ctx context.Context, scheduleID uuid.UUID) (*models.Schedule, error) {
	sched, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, notFoundOr(err, "Schedule not found")
	}
	return sched, nil
}

// QuotaStatus is the read side of the weekly window; it rolls a stale window first.
func (s *ScheduleService) QuotaStatus(ctx context.Context, doctorID uuid.UUID) (*QuotaSnapshot, error) {
	return s.quota.Snapshot(s.db.WithContext(ctx), doctorID)
}

// MessagingUnlocked reports whether patient and doctor share an accepted schedule.
func (s *ScheduleService) MessagingUnlocked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return s.repo.ExistsWithStatus(ctx, patientID, doctorID, models.StatusAccepted)
}

func (s *ScheduleService) checkOverlap(
	ctx context.Context,
	repo repository.ScheduleRepository,
	doctorID uuid.UUID,
	date datatypes.Date,
	start, end int,
	exclude *uuid.UUID,
) error {
	existing, err := repo.ListActiveOnDay(ctx, doctorID, date, exclude)
	if err != nil {
		return apperr.Internal("Failed to check overlapping schedules", err)
	}
	for _, e := range existing {
		es, err1 := ParseClock(e.StartTime)
		ee, err2 := ParseClock(e.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if Overlaps(start, end, es, ee) {
			return apperr.Conflict("Time slot overlaps an existing schedule").
				With("conflict", map[string]string{"id": e.ID.String(), "start_time": e.StartTime, "end_time": e.EndTime})
		}
	}
	return nil
}

// lockOwned and loadOwned report someone else's schedule as missing.
func (s *ScheduleService) lockOwned(ctx context.Context, repo repository.ScheduleRepository, id, doctorID uuid.UUID) (*models.Schedule, error) {
	sched, err := repo.Lock(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Schedule not found or access denied")
	}
	if sched.DoctorID != doctorID {
		return nil, apperr.NotFound("Schedule not found or access denied")
	}
	return sched, nil
}

func (s *ScheduleService) loadOwned(ctx context.Context, repo repository.ScheduleRepository, id, doctorID uuid.UUID) (*models.Schedule, error) {
	sched, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Schedule not found or access denied")
	}
	if sched.DoctorID != doctorID {
		return nil, apperr.NotFound("Schedule not found or access denied")
	}
	return sched, nil
}

func (s *ScheduleService) loadHeldBy(ctx context.Context, repo repository.ScheduleRepository, id, patientID uuid.UUID) (*models.Schedule, error) {
	sched, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Schedule not found or access denied")
	}
	if sched.PatientID == nil || *sched.PatientID != patientID {
		return nil, apperr.NotFound("Schedule not found or access denied")
	}
	return sched, nil
}

// resolveMeeting applies the online/offline rule: offline never keeps a link, online needs one.
func resolveMeeting(requested string, link *string, currentType string, currentLink *string) (string, *string, error) {
	t := requested
	if t == "" {
		t = currentType
	}
	if t == "" {
		t = models.AppointmentOffline
	}

	switch t {
	case models.AppointmentOffline:
		return t, nil, nil
	case models.AppointmentOnline:
		l := link
		if l == nil && currentType == models.AppointmentOnline {
			l = currentLink
		}
		if l == nil || strings.TrimSpace(*l) == "" {
			return "", nil, apperr.Validation("Meeting link is required for online appointments")
		}
		trimmed := strings.TrimSpace(*l)
		return t, &trimmed, nil
	default:
		return "", nil, apperr.Validation("Appointment type must be online or offline")
	}
}

func releaseUpdates() map[string]any {
	return map[string]any{
		"status":        models.StatusAvailable,
		"patient_id":    nil,
		"is_available":  true,
		"cancel_reason": nil,
	}
}

func scheduleData(s *models.Schedule) map[string]any {
	d := map[string]any{
		"schedule_id": s.ID.String(),
		"doctor_id":   s.DoctorID.String(),
		"date":        time.Time(s.Date).Format("2006-01-02"),
		"start_time":  s.StartTime,
		"end_time":    s.EndTime,
	}
	if s.PatientID != nil {
		d["patient_id"] = s.PatientID.String()
	}
	return d
}

func withData(d map[string]any, key string, value any) map[string]any {
	d[key] = value
	return d
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(msg, err)
}

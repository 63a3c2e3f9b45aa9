package services

import (
	"context"
	"fmt"
	"time"

	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderLead is how far ahead of an accepted appointment both parties are reminded.
const ReminderLead = time.Hour

// SendReminders queues a reminder for every accepted schedule starting within
// ReminderLead. Each schedule is reminded at most once; reminded_at is the marker.
func (s *ScheduleService) SendReminders(ctx context.Context) (int, error) {
	now := s.clock()
	horizon := now.Add(ReminderLead)

	var due []models.Schedule
	if err := s.db.WithContext(ctx).
		Preload("Doctor").Preload("Patient").
		Where("status = ? AND patient_id IS NOT NULL AND reminded_at IS NULL", models.StatusAccepted).
		Where("date >= ? AND date <= ?", models.DateOf(now), models.DateOf(horizon)).
		Find(&due).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		sch := &due[i]
		startMin, err := ParseClock(sch.StartTime)
		if err != nil {
			continue
		}
		start := At(sch.Day(s.loc), startMin)
		if !start.After(now) || start.After(horizon) {
			continue
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).CompareAndSet(ctx, sch.ID,
				[]models.ScheduleStatus{models.StatusAccepted},
				map[string]any{"reminded_at": now},
				clause.Expr{SQL: "reminded_at IS NULL"},
			)
			if err != nil || !ok {
				return err
			}

			msg := fmt.Sprintf("Your appointment on %s starts within the hour", slotLabel(sch))
			patSubj, patHTML := reminderEmail(sch, sch.Patient, sch.Doctor, false)
			docSubj, docHTML := reminderEmail(sch, sch.Doctor, sch.Patient, true)
			if err := s.outbox.Enqueue(tx,
				Notice{
					RecipientID:  *sch.PatientID,
					Type:         models.NotifyReminder,
					Message:      msg,
					ScheduleID:   &sch.ID,
					Data:         scheduleData(sch),
					EmailSubject: patSubj,
					EmailHTML:    patHTML,
					Push:         true,
				},
				Notice{
					RecipientID:  sch.DoctorID,
					Type:         models.NotifyReminder,
					Message:      msg,
					ScheduleID:   &sch.ID,
					Data:         scheduleData(sch),
					EmailSubject: docSubj,
					EmailHTML:    docHTML,
					Push:         true,
				},
			); err != nil {
				return err
			}
			sent++
			return nil
		})
		if err != nil {
			logger.Log.Error().Err(err).Str("schedule_id", sch.ID.String()).Msg("🔥 Failed to queue reminder")
		}
	}

	if sent > 0 {
		s.outbox.Flush()
	}
	return sent, nil
}

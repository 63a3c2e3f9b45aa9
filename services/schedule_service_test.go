package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

type scheduleFixture struct {
	db      *gorm.DB
	svc     *ScheduleService
	waker   *countingWaker
	doctor  models.User
	patient models.User
	other   models.User
}

func newScheduleFixture(t *testing.T, weekly int) *scheduleFixture {
	t.Helper()
	db := newTestDB(t)
	waker := &countingWaker{}
	return &scheduleFixture{
		db:      db,
		svc:     NewScheduleService(db, NewOutbox(waker), WithClock(fixedClock), WithLocation(time.UTC)),
		waker:   waker,
		doctor:  seedDoctor(t, db, "Grace Hopper", weekly),
		patient: seedUser(t, db, "Ada Lovelace", models.RoleUser),
		other:   seedUser(t, db, "Alan Turing", models.RoleUser),
	}
}

func (f *scheduleFixture) create(t *testing.T, d int, start, end string) *models.Schedule {
	t.Helper()
	res, err := f.svc.Create(context.Background(), f.doctor.ID, CreateScheduleInput{
		Date:      day(d),
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("create %d %s-%s: %v", d, start, end, err)
	}
	return res.Schedule
}

func expectKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func TestCreateConsumesQuotaAndRejectsOverlap(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.doctor.ID, CreateScheduleInput{
		Date:            day(16),
		StartTime:       "09:00",
		EndTime:         "10:30",
		AppointmentType: models.AppointmentOffline,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Schedule.Status != models.StatusAvailable || !res.Schedule.IsAvailable {
		t.Fatalf("new schedule = %s available=%v", res.Schedule.Status, res.Schedule.IsAvailable)
	}
	if res.Quota.Used != 1 || res.Quota.Remaining != 4 {
		t.Fatalf("quota after create = %+v", res.Quota)
	}

	_, err = f.svc.Create(ctx, f.doctor.ID, CreateScheduleInput{Date: day(16), StartTime: "09:30", EndTime: "10:30"})
	expectKind(t, err, apperr.KindConflict)

	if used := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits.Used; used != 1 {
		t.Fatalf("used after rejected overlap = %d, want 1", used)
	}

	// touching the end of the first slot is fine
	f.create(t, 16, "10:30", "11:30")
}

func TestCreateValidation(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	link := "https://meet.example.com/abc"

	cases := []struct {
		name string
		in   CreateScheduleInput
		kind apperr.Kind
	}{
		{"previous week", CreateScheduleInput{Date: day(9), StartTime: "09:00", EndTime: "10:00"}, apperr.KindValidation},
		{"next week", CreateScheduleInput{Date: day(19), StartTime: "09:00", EndTime: "10:00"}, apperr.KindValidation},
		{"already ended today", CreateScheduleInput{Date: day(14), StartTime: "08:00", EndTime: "09:00"}, apperr.KindValidation},
		{"too short", CreateScheduleInput{Date: day(16), StartTime: "09:00", EndTime: "09:30"}, apperr.KindValidation},
		{"end before start", CreateScheduleInput{Date: day(16), StartTime: "11:00", EndTime: "10:00"}, apperr.KindValidation},
		{"online without link", CreateScheduleInput{Date: day(16), StartTime: "09:00", EndTime: "10:00", AppointmentType: models.AppointmentOnline}, apperr.KindValidation},
		{"unknown type", CreateScheduleInput{Date: day(16), StartTime: "09:00", EndTime: "10:00", AppointmentType: "phone"}, apperr.KindValidation},
		{"unknown doctor", CreateScheduleInput{Date: day(16), StartTime: "09:00", EndTime: "10:00", MeetingLink: &link}, apperr.KindNotFound},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doctorID := f.doctor.ID
			if c.kind == apperr.KindNotFound {
				doctorID = uuid.New()
			}
			_, err := f.svc.Create(ctx, doctorID, c.in)
			expectKind(t, err, c.kind)
		})
	}

	if used := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits.Used; used != 0 {
		t.Fatalf("failed creates consumed quota: used = %d", used)
	}
}

func TestCreateOnlineKeepsTrimmedLink(t *testing.T) {
	f := newScheduleFixture(t, 5)
	link := "  https://meet.example.com/abc  "

	res, err := f.svc.Create(context.Background(), f.doctor.ID, CreateScheduleInput{
		Date:            day(17),
		StartTime:       "14:00",
		EndTime:         "15:00",
		AppointmentType: models.AppointmentOnline,
		MeetingLink:     &link,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Schedule.MeetingLink == nil || *res.Schedule.MeetingLink != "https://meet.example.com/abc" {
		t.Fatalf("meeting link = %v", res.Schedule.MeetingLink)
	}
}

func TestQuotaNeverExceedsWeeklyLimit(t *testing.T) {
	f := newScheduleFixture(t, 2)

	f.create(t, 15, "09:00", "10:00")
	f.create(t, 15, "10:00", "11:00")

	_, err := f.svc.Create(context.Background(), f.doctor.ID, CreateScheduleInput{Date: day(15), StartTime: "11:00", EndTime: "12:00"})
	expectKind(t, err, apperr.KindConflict)

	limits := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits
	if limits.Used != 2 || limits.Weekly != 2 {
		t.Fatalf("limits = %+v, want used 2 of 2", limits)
	}
}

func TestStaleWindowIsResetBeforeQuotaCheck(t *testing.T) {
	f := newScheduleFixture(t, 3)
	pastMonday := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	if err := f.db.Model(&models.Doctor{}).Where("user_id = ?", f.doctor.ID).Updates(map[string]any{
		"schedule_limits_used":       3,
		"schedule_limits_reset_date": pastMonday,
	}).Error; err != nil {
		t.Fatalf("stage stale window: %v", err)
	}

	f.create(t, 16, "09:00", "10:00")

	limits := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits
	if limits.Used != 1 {
		t.Fatalf("used = %d, want 1", limits.Used)
	}
	wantReset := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if limits.ResetDate == nil || !limits.ResetDate.Equal(wantReset) {
		t.Fatalf("reset date = %v, want %s", limits.ResetDate, wantReset)
	}
}

func TestDeleteReleasesQuotaFlooredAtZero(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()

	a := f.create(t, 16, "09:00", "10:00")
	b := f.create(t, 16, "10:00", "11:00")

	snap, err := f.svc.Delete(ctx, f.doctor.ID, a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snap.Used != 1 {
		t.Fatalf("used after delete = %d, want 1", snap.Used)
	}

	if err := f.db.Model(&models.Doctor{}).Where("user_id = ?", f.doctor.ID).
		Update("schedule_limits_used", 0).Error; err != nil {
		t.Fatalf("zero used: %v", err)
	}
	snap, err = f.svc.Delete(ctx, f.doctor.ID, b.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snap.Used != 0 {
		t.Fatalf("used went below zero: %d", snap.Used)
	}

	var count int64
	f.db.Model(&models.Schedule{}).Count(&count)
	if count != 0 {
		t.Fatalf("schedules left = %d", count)
	}
}

func TestDeleteRejectedUnlessAvailable(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.svc.Delete(ctx, f.doctor.ID, s.ID)
	expectKind(t, err, apperr.KindConflict)

	_, err = f.svc.Delete(ctx, uuid.New(), s.ID)
	expectKind(t, err, apperr.KindNotFound)

	if got := loadSchedule(t, f.db, s.ID).Status; got != models.StatusPending {
		t.Fatalf("status = %s, want pending", got)
	}
}

func TestSecondPatientCannotRegisterTakenSlot(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	got, err := f.svc.Register(ctx, f.patient.ID, s.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got.Status != models.StatusPending || got.PatientID == nil || *got.PatientID != f.patient.ID || got.IsAvailable {
		t.Fatalf("after register: status=%s patient=%v available=%v", got.Status, got.PatientID, got.IsAvailable)
	}
	if f.waker.count() == 0 {
		t.Fatal("register did not wake the dispatcher")
	}

	_, err = f.svc.Register(ctx, f.other.ID, s.ID)
	expectKind(t, err, apperr.KindNotFound)

	after := loadSchedule(t, f.db, s.ID)
	if *after.PatientID != f.patient.ID {
		t.Fatalf("second registration overwrote patient")
	}

	var notices int64
	f.db.Model(&models.Notification{}).Where("schedule_id = ?", s.ID).Count(&notices)
	if notices != 2 {
		t.Fatalf("notifications after register = %d, want 2", notices)
	}
	var jobs int64
	f.db.Model(&models.DispatchJob{}).Where("status = ?", models.DispatchPending).Count(&jobs)
	if jobs == 0 {
		t.Fatal("register enqueued no dispatch jobs")
	}
}

func TestRegisterRejectsPastAndDuplicateSlots(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()

	past := models.Schedule{
		DoctorID:    f.doctor.ID,
		Date:        models.DateOf(day(13)),
		StartTime:   "09:00",
		EndTime:     "10:00",
		Status:      models.StatusAvailable,
		IsAvailable: true,
	}
	if err := f.db.Create(&past).Error; err != nil {
		t.Fatalf("seed past schedule: %v", err)
	}
	_, err := f.svc.Register(ctx, f.patient.ID, past.ID)
	expectKind(t, err, apperr.KindNotFound)

	second := seedDoctor(t, f.db, "Barbara Liskov", 5)
	a := f.create(t, 16, "09:00", "10:00")
	b, err := f.svc.Create(ctx, second.ID, CreateScheduleInput{Date: day(16), StartTime: "09:00", EndTime: "10:00"})
	if err != nil {
		t.Fatalf("create second doctor slot: %v", err)
	}

	if _, err := f.svc.Register(ctx, f.patient.ID, a.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = f.svc.Register(ctx, f.patient.ID, b.Schedule.ID)
	expectKind(t, err, apperr.KindConflict)
}

func TestCancelPendingRoundTrip(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.svc.CancelPending(ctx, f.other.ID, s.ID)
	expectKind(t, err, apperr.KindNotFound)

	got, err := f.svc.CancelPending(ctx, f.patient.ID, s.ID)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if got.Status != models.StatusAvailable || got.PatientID != nil || !got.IsAvailable {
		t.Fatalf("after cancel pending: status=%s patient=%v available=%v", got.Status, got.PatientID, got.IsAvailable)
	}

	if _, err := f.svc.Register(ctx, f.other.ID, s.ID); err != nil {
		t.Fatalf("reopened slot not bookable: %v", err)
	}
	if used := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits.Used; used != 1 {
		t.Fatalf("used = %d, want 1", used)
	}
}

func TestCancelPendingRefusesPastDay(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.db.Model(&models.Schedule{}).Where("id = ?", s.ID).
		Update("date", day(12)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	_, err := f.svc.CancelPending(ctx, f.patient.ID, s.ID)
	expectKind(t, err, apperr.KindValidation)

	if got := loadSchedule(t, f.db, s.ID); got.Status != models.StatusPending || got.PatientID == nil {
		t.Fatalf("past pending registration changed: status=%s patient=%v", got.Status, got.PatientID)
	}
}

func TestRejectRequiresReasonAndReopensSlot(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")
	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.svc.Reject(ctx, f.doctor.ID, s.ID, "   ")
	expectKind(t, err, apperr.KindValidation)
	if got := loadSchedule(t, f.db, s.ID); got.Status != models.StatusPending || got.PatientID == nil {
		t.Fatalf("empty reason changed state: %s", got.Status)
	}

	got, err := f.svc.Reject(ctx, f.doctor.ID, s.ID, "Fully booked that morning")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.StatusAvailable || got.PatientID != nil || !got.IsAvailable {
		t.Fatalf("after reject: status=%s patient=%v available=%v", got.Status, got.PatientID, got.IsAvailable)
	}
	if got.RejectedReason == nil || *got.RejectedReason != "Fully booked that morning" {
		t.Fatalf("rejected reason = %v", got.RejectedReason)
	}
	if used := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits.Used; used != 1 {
		t.Fatalf("reject changed quota: used = %d", used)
	}

	var toPatient int64
	f.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", f.patient.ID, models.NotifyScheduleReject).
		Count(&toPatient)
	if toPatient != 1 {
		t.Fatalf("reject notifications to patient = %d", toPatient)
	}
}

func TestAcceptCompleteAndMessagingUnlock(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	_, err := f.svc.Accept(ctx, f.doctor.ID, s.ID)
	expectKind(t, err, apperr.KindConflict)

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.svc.Complete(ctx, f.doctor.ID, s.ID)
	expectKind(t, err, apperr.KindConflict)

	unlocked, err := f.svc.MessagingUnlocked(ctx, f.patient.ID, f.doctor.ID)
	if err != nil || unlocked {
		t.Fatalf("messaging unlocked before accept: %v %v", unlocked, err)
	}

	got, err := f.svc.Accept(ctx, f.doctor.ID, s.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Fatalf("status = %s, want accepted", got.Status)
	}

	unlocked, err = f.svc.MessagingUnlocked(ctx, f.patient.ID, f.doctor.ID)
	if err != nil || !unlocked {
		t.Fatalf("messaging locked after accept: %v %v", unlocked, err)
	}

	_, err = f.svc.Reject(ctx, f.doctor.ID, s.ID, "changed my mind")
	expectKind(t, err, apperr.KindConflict)

	got, err = f.svc.Complete(ctx, f.doctor.ID, s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}

	_, err = f.svc.Cancel(ctx, f.patient.ID, s.ID, "too late")
	expectKind(t, err, apperr.KindConflict)
}

func TestCancelAcceptedNotifiesDoctorAndAdmins(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	admin := seedUser(t, f.db, "Site Admin", models.RoleAdmin)
	s := f.create(t, 17, "09:00", "10:00")

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Accept(ctx, f.doctor.ID, s.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err := f.svc.Cancel(ctx, f.patient.ID, s.ID, "")
	expectKind(t, err, apperr.KindValidation)

	got, err := f.svc.Cancel(ctx, f.patient.ID, s.ID, "Feeling better")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.StatusAvailable || got.PatientID != nil || got.CancelReason != nil {
		t.Fatalf("after cancel: status=%s patient=%v reason=%v", got.Status, got.PatientID, got.CancelReason)
	}

	var adminEmails int64
	f.db.Model(&models.DispatchJob{}).
		Where("recipient_id = ? AND channel = ?", admin.ID, models.ChannelEmail).
		Count(&adminEmails)
	if adminEmails != 1 {
		t.Fatalf("admin cancel emails = %d, want 1", adminEmails)
	}

	var doctorCancel models.Notification
	if err := f.db.Where("user_id = ? AND type = ?", f.doctor.ID, models.NotifyScheduleCancel).
		First(&doctorCancel).Error; err != nil {
		t.Fatalf("doctor cancel notification: %v", err)
	}
	if doctorCancel.CancelReason == nil || *doctorCancel.CancelReason != "Feeling better" {
		t.Fatalf("notification reason = %v", doctorCancel.CancelReason)
	}
}

func TestLegacyBookedScheduleCanBeCancelled(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	if err := f.db.Model(&models.Schedule{}).Where("id = ?", s.ID).Updates(map[string]any{
		"status":       models.StatusBooked,
		"patient_id":   f.patient.ID,
		"is_available": false,
	}).Error; err != nil {
		t.Fatalf("stage booked row: %v", err)
	}

	got, err := f.svc.Cancel(ctx, f.patient.ID, s.ID, "Travelling")
	if err != nil {
		t.Fatalf("cancel booked: %v", err)
	}
	if got.Status != models.StatusAvailable {
		t.Fatalf("status = %s, want available", got.Status)
	}
}

func TestUpdateOnlyWhileAvailable(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")
	f.create(t, 16, "11:00", "12:00")

	online := models.AppointmentOnline
	_, err := f.svc.Update(ctx, f.doctor.ID, s.ID, UpdateScheduleInput{AppointmentType: &online})
	expectKind(t, err, apperr.KindValidation)

	start, end := "10:30", "11:30"
	_, err = f.svc.Update(ctx, f.doctor.ID, s.ID, UpdateScheduleInput{StartTime: &start, EndTime: &end})
	expectKind(t, err, apperr.KindConflict)

	start, end = "08:00", "09:30"
	link := "https://meet.example.com/xyz"
	got, err := f.svc.Update(ctx, f.doctor.ID, s.ID, UpdateScheduleInput{
		StartTime:       &start,
		EndTime:         &end,
		AppointmentType: &online,
		MeetingLink:     &link,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.StartTime != "08:00" || got.EndTime != "09:30" || got.AppointmentType != models.AppointmentOnline {
		t.Fatalf("after update: %s-%s %s", got.StartTime, got.EndTime, got.AppointmentType)
	}

	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	notes := "bring results"
	_, err = f.svc.Update(ctx, f.doctor.ID, s.ID, UpdateScheduleInput{Notes: &notes})
	expectKind(t, err, apperr.KindConflict)
}

func TestReactivateCancelledSchedule(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()
	s := f.create(t, 16, "09:00", "10:00")

	_, err := f.svc.Reactivate(ctx, f.doctor.ID, s.ID)
	expectKind(t, err, apperr.KindConflict)

	if err := f.db.Model(&models.Schedule{}).Where("id = ?", s.ID).Updates(map[string]any{
		"status":       models.StatusCancelled,
		"is_available": false,
	}).Error; err != nil {
		t.Fatalf("stage cancelled row: %v", err)
	}

	got, err := f.svc.Reactivate(ctx, f.doctor.ID, s.ID)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if got.Status != models.StatusAvailable || !got.IsAvailable {
		t.Fatalf("after reactivate: %s available=%v", got.Status, got.IsAvailable)
	}
	if used := loadDoctor(t, f.db, f.doctor.ID).ScheduleLimits.Used; used != 1 {
		t.Fatalf("reactivate changed quota: used = %d", used)
	}
}

func TestSendRemindersOncePerSchedule(t *testing.T) {
	f := newScheduleFixture(t, 5)
	ctx := context.Background()

	soon := f.create(t, 14, "10:30", "11:30")
	later := f.create(t, 14, "13:00", "14:00")
	for _, s := range []*models.Schedule{soon, later} {
		if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := f.svc.Accept(ctx, f.doctor.ID, s.ID); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	sent, err := f.svc.SendReminders(ctx)
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if sent != 1 {
		t.Fatalf("reminded %d schedules, want 1", sent)
	}

	sent, err = f.svc.SendReminders(ctx)
	if err != nil {
		t.Fatalf("send reminders again: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second run reminded %d schedules, want 0", sent)
	}

	var reminders int64
	f.db.Model(&models.Notification{}).Where("type = ?", models.NotifyReminder).Count(&reminders)
	if reminders != 2 {
		t.Fatalf("reminder notifications = %d, want 2", reminders)
	}
	if got := loadSchedule(t, f.db, soon.ID); got.RemindedAt == nil {
		t.Fatal("reminded_at not set")
	}
	if got := loadSchedule(t, f.db, later.ID); got.RemindedAt != nil {
		t.Fatal("schedule outside the window was marked")
	}
}

func TestQuotaStatusRollsWindow(t *testing.T) {
	f := newScheduleFixture(t, 5)

	snap, err := f.svc.QuotaStatus(context.Background(), f.doctor.ID)
	if err != nil {
		t.Fatalf("quota status: %v", err)
	}
	if snap.Weekly != 5 || snap.Used != 0 || snap.Remaining != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.ResetDate == nil || snap.ResetDate.Weekday() != time.Monday {
		t.Fatalf("reset date = %v, want a Monday", snap.ResetDate)
	}

	_, err = f.svc.QuotaStatus(context.Background(), uuid.New())
	expectKind(t, err, apperr.KindNotFound)
}

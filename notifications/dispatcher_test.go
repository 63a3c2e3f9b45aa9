package notifications

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(toName, toEmail, subject, htmlContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, toEmail+"|"+subject)
	return nil
}

type recordingPusher struct {
	tokens [][]string
}

func (p *recordingPusher) Push(tokens []string, title, body string, data map[string]any) error {
	p.tokens = append(p.tokens, tokens)
	return nil
}

type recordingRealtime struct {
	events []string
}

func (r *recordingRealtime) Emit(userID uuid.UUID, event string, payload []byte) error {
	r.events = append(r.events, event)
	return nil
}

func newDispatchDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dispatch.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedRecipient(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	u := models.User{FullName: "Ada Lovelace", Email: uuid.NewString() + "@example.com", Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func jobStatus(t *testing.T, db *gorm.DB, id uuid.UUID) models.DispatchJob {
	t.Helper()
	var j models.DispatchJob
	if err := db.First(&j, "id = ?", id).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	return j
}

func TestDrainDeliversEachJobOnce(t *testing.T) {
	db := newDispatchDB(t)
	user := seedRecipient(t, db)
	device := models.Device{UserID: user.ID, Token: "ExponentPushToken[abc123]", Platform: "ios"}
	if err := db.Create(&device).Error; err != nil {
		t.Fatalf("seed device: %v", err)
	}

	jobs := []models.DispatchJob{
		{Channel: models.ChannelEmail, RecipientID: user.ID, Subject: "Booked", Body: "<p>hi</p>"},
		{Channel: models.ChannelPush, RecipientID: user.ID, Subject: "New booking", Body: "hi", Payload: datatypes.JSON(`{"schedule_id":"1"}`)},
		{Channel: models.ChannelRealtime, RecipientID: user.ID, Subject: "notification", Payload: datatypes.JSON(`{}`)},
	}
	if err := db.Create(&jobs).Error; err != nil {
		t.Fatalf("seed jobs: %v", err)
	}

	mailer := &recordingMailer{}
	pusher := &recordingPusher{}
	rt := &recordingRealtime{}
	d := NewDispatcher(db, mailer, pusher, rt)

	n, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 3 {
		t.Fatalf("attempted = %d, want 3", n)
	}
	if len(mailer.sent) != 1 || len(pusher.tokens) != 1 || len(rt.events) != 1 {
		t.Fatalf("deliveries: mail=%d push=%d realtime=%d", len(mailer.sent), len(pusher.tokens), len(rt.events))
	}
	if pusher.tokens[0][0] != device.Token {
		t.Fatalf("pushed to %v", pusher.tokens[0])
	}

	for _, j := range jobs {
		got := jobStatus(t, db, j.ID)
		if got.Status != models.DispatchSent || got.Attempts != 1 || got.DispatchedAt == nil {
			t.Fatalf("job %s: status=%s attempts=%d", got.Channel, got.Status, got.Attempts)
		}
	}

	n, err = d.Drain(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second drain attempted %d, %v", n, err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("email sent twice")
	}
}

func TestDrainRecordsFailuresWithoutRetry(t *testing.T) {
	db := newDispatchDB(t)
	user := seedRecipient(t, db)

	failing := models.DispatchJob{Channel: models.ChannelEmail, RecipientID: user.ID, Subject: "Cancelled", Body: "x"}
	unknown := models.DispatchJob{Channel: "fax", RecipientID: user.ID}
	if err := db.Create(&failing).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := db.Create(&unknown).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	mailer := &recordingMailer{err: errors.New("smtp: connection refused")}
	d := NewDispatcher(db, mailer, nil, nil)

	n, err := d.Drain(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("drain = %d, %v", n, err)
	}

	got := jobStatus(t, db, failing.ID)
	if got.Status != models.DispatchFailed || got.LastError == nil || *got.LastError != "smtp: connection refused" {
		t.Fatalf("failed job = %s %v", got.Status, got.LastError)
	}
	if got := jobStatus(t, db, unknown.ID); got.Status != models.DispatchFailed {
		t.Fatalf("unknown channel job = %s", got.Status)
	}

	mailer.err = nil
	n, err = d.Drain(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("failed jobs retried: %d, %v", n, err)
	}
}

func TestDisabledChannelFails(t *testing.T) {
	db := newDispatchDB(t)
	user := seedRecipient(t, db)
	job := models.DispatchJob{Channel: models.ChannelRealtime, RecipientID: user.ID, Subject: "notification"}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	d := NewDispatcher(db, nil, nil, nil)
	if _, err := d.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	got := jobStatus(t, db, job.ID)
	if got.Status != models.DispatchFailed || got.LastError == nil || *got.LastError != ErrChannelDisabled.Error() {
		t.Fatalf("job = %s %v", got.Status, got.LastError)
	}
}

func TestWakeNeverBlocks(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil)
	for i := 0; i < 10; i++ {
		d.Wake()
	}
	if len(d.wake) != 1 {
		t.Fatalf("wake buffer = %d, want 1", len(d.wake))
	}
}

func TestValidToken(t *testing.T) {
	if !ValidToken("ExponentPushToken[abc123]") {
		t.Fatal("well-formed token rejected")
	}
	if ValidToken("not-a-token") {
		t.Fatal("malformed token accepted")
	}
}

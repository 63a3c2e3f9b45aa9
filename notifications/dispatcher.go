package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

// Realtime pushes an event to a connected user.
type Realtime interface {
	Emit(userID uuid.UUID, event string, payload []byte) error
}

var ErrChannelDisabled = errors.New("delivery channel not configured")

// Dispatcher drains the dispatch_jobs outbox. Each job is claimed with a conditional
// update and attempted once; the outcome is written back as sent or failed.
type Dispatcher struct {
	db       *gorm.DB
	mailer   Mailer
	pusher   Pusher
	realtime Realtime
	wake     chan struct{}
	batch    int
	now      func() time.Time
}

func NewDispatcher(db *gorm.DB, mailer Mailer, pusher Pusher, realtime Realtime) *Dispatcher {
	return &Dispatcher{
		db:       db,
		mailer:   mailer,
		pusher:   pusher,
		realtime: realtime,
		wake:     make(chan struct{}, 1),
		batch:    50,
		now:      time.Now,
	}
}

// Wake asks the run loop to drain soon. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drains on every wake until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			if _, err := d.Drain(ctx); err != nil {
				logger.Log.Error().Err(err).Msg("🔥 Dispatch drain failed")
			}
		}
	}
}

// Drain delivers pending jobs in creation order and returns how many it attempted.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	attempted := 0
	for {
		var jobs []models.DispatchJob
		if err := d.db.WithContext(ctx).
			Where("status = ?", models.DispatchPending).
			Order("created_at ASC").
			Limit(d.batch).
			Find(&jobs).Error; err != nil {
			return attempted, err
		}
		if len(jobs) == 0 {
			return attempted, nil
		}

		for i := range jobs {
			claimed, err := d.claim(ctx, jobs[i].ID)
			if err != nil {
				return attempted, err
			}
			if !claimed {
				continue
			}
			attempted++
			d.finish(ctx, &jobs[i], d.deliver(ctx, &jobs[i]))
		}

		if len(jobs) < d.batch {
			return attempted, nil
		}
	}
}

func (d *Dispatcher) claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res := d.db.WithContext(ctx).
		Model(&models.DispatchJob{}).
		Where("id = ? AND status = ?", id, models.DispatchPending).
		Updates(map[string]any{
			"status":   models.DispatchSending,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (d *Dispatcher) finish(ctx context.Context, job *models.DispatchJob, deliverErr error) {
	now := d.now()
	updates := map[string]any{"dispatched_at": now}
	if deliverErr != nil {
		msg := deliverErr.Error()
		updates["status"] = models.DispatchFailed
		updates["last_error"] = msg
		logger.Log.Warn().
			Str("job_id", job.ID.String()).
			Str("channel", job.Channel).
			Str("recipient_id", job.RecipientID.String()).
			Err(deliverErr).
			Msg("⚠️ Dispatch failed")
	} else {
		updates["status"] = models.DispatchSent
	}

	if err := d.db.WithContext(ctx).
		Model(&models.DispatchJob{}).
		Where("id = ? AND status = ?", job.ID, models.DispatchSending).
		Updates(updates).Error; err != nil {
		logger.Log.Error().Err(err).Str("job_id", job.ID.String()).Msg("🔥 Failed to record dispatch outcome")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job *models.DispatchJob) error {
	switch job.Channel {
	case models.ChannelEmail:
		if d.mailer == nil {
			return ErrChannelDisabled
		}
		var user models.User
		if err := d.db.WithContext(ctx).Select("id", "full_name", "email").
			First(&user, "id = ?", job.RecipientID).Error; err != nil {
			return fmt.Errorf("load recipient: %w", err)
		}
		return d.mailer.Send(user.FullName, user.Email, job.Subject, job.Body)

	case models.ChannelPush:
		if d.pusher == nil {
			return ErrChannelDisabled
		}
		var tokens []string
		if err := d.db.WithContext(ctx).Model(&models.Device{}).
			Where("user_id = ?", job.RecipientID).
			Pluck("token", &tokens).Error; err != nil {
			return fmt.Errorf("load devices: %w", err)
		}
		if len(tokens) == 0 {
			return nil
		}
		var data map[string]any
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &data); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
		}
		return d.pusher.Push(tokens, job.Subject, job.Body, data)

	case models.ChannelRealtime:
		if d.realtime == nil {
			return ErrChannelDisabled
		}
		return d.realtime.Emit(job.RecipientID, job.Subject, job.Payload)

	default:
		return fmt.Errorf("unknown channel %q", job.Channel)
	}
}

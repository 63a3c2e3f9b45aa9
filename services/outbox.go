package services

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Waker is notified after a transaction that enqueued dispatch jobs commits.
type Waker interface {
	Wake()
}

// Notice is everything one recipient should learn about an event.
// Type empty means no in-app notification row (email-only notices to admins).
type Notice struct {
	RecipientID  uuid.UUID
	Type         string
	Message      string
	ScheduleID   *uuid.UUID
	CancelReason *string
	Data         map[string]any

	EmailSubject string
	EmailHTML    string
	Push         bool
	Realtime     bool
	// Event is the realtime event name, "notification" when empty.
	Event string
}

// Outbox records notices in the caller's transaction. Delivery happens later, outside
// the request, through the dispatcher.
type Outbox struct {
	waker Waker
}

func NewOutbox(w Waker) *Outbox {
	return &Outbox{waker: w}
}

func (o *Outbox) Enqueue(tx *gorm.DB, notices ...Notice) error {
	for _, n := range notices {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return err
		}

		if n.Type != "" {
			row := models.Notification{
				UserID:       n.RecipientID,
				Type:         n.Type,
				Message:      n.Message,
				ScheduleID:   n.ScheduleID,
				CancelReason: n.CancelReason,
				Data:         datatypes.JSON(data),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		var jobs []models.DispatchJob
		if n.EmailSubject != "" {
			jobs = append(jobs, models.DispatchJob{
				Channel:     models.ChannelEmail,
				RecipientID: n.RecipientID,
				Subject:     n.EmailSubject,
				Body:        n.EmailHTML,
			})
		}
		if n.Push {
			jobs = append(jobs, models.DispatchJob{
				Channel:     models.ChannelPush,
				RecipientID: n.RecipientID,
				Subject:     pushTitle(n.Type),
				Body:        n.Message,
				Payload:     datatypes.JSON(data),
			})
		}
		if n.Realtime {
			event := n.Event
			if event == "" {
				event = "notification"
			}
			payload, err := json.Marshal(map[string]any{
				"type":    n.Type,
				"message": n.Message,
				"data":    n.Data,
			})
			if err != nil {
				return err
			}
			jobs = append(jobs, models.DispatchJob{
				Channel:     models.ChannelRealtime,
				RecipientID: n.RecipientID,
				Subject:     event,
				Payload:     datatypes.JSON(payload),
			})
		}

		if len(jobs) > 0 {
			if err := tx.Create(&jobs).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush wakes the dispatcher. Call it only after the enqueuing transaction committed.
func (o *Outbox) Flush() {
	if o != nil && o.waker != nil {
		o.waker.Wake()
	}
}

func pushTitle(notificationType string) string {
	switch notificationType {
	case models.NotifyScheduleRegister, models.NotifyBooking:
		return "New booking"
	case models.NotifyScheduleAccept:
		return "Appointment confirmed"
	case models.NotifyScheduleReject:
		return "Appointment declined"
	case models.NotifyScheduleCancel, models.NotifyCancel:
		return "Appointment cancelled"
	case models.NotifyScheduleCompleted:
		return "Appointment completed"
	case models.NotifyFeedbackReceived:
		return "New feedback"
	case models.NotifyPaymentSuccess:
		return "Payment received"
	case models.NotifyReminder:
		return "Upcoming appointment"
	case models.NotifyBalanceRecharged:
		return "Balance topped up"
	case models.NotifyBlogComment:
		return "New comment"
	default:
		return "Telecare"
	}
}

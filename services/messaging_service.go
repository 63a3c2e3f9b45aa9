package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

// MessagingService is patient/doctor chat, gated on an accepted schedule between them.
type MessagingService struct {
	db        *gorm.DB
	schedules *ScheduleService
	outbox    *Outbox
	now       func() time.Time
}

func NewMessagingService(db *gorm.DB, schedules *ScheduleService, outbox *Outbox) *MessagingService {
	return &MessagingService{db: db, schedules: schedules, outbox: outbox, now: time.Now}
}

type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	LastMessage  *models.Message     `json:"last_message"`
	UnreadCount  int64               `json:"unread_count"`
}

// Parties orders two users into (patient, doctor) using the sender's role.
func Parties(senderID uuid.UUID, senderRole string, otherID uuid.UUID) (patientID, doctorID uuid.UUID) {
	if senderRole == models.RoleDoctor {
		return otherID, senderID
	}
	return senderID, otherID
}

func (s *MessagingService) Unlocked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	ok, err := s.schedules.MessagingUnlocked(ctx, patientID, doctorID)
	if err != nil {
		return false, apperr.Internal("Error checking unlock status", err)
	}
	return ok, nil
}

func (s *MessagingService) Send(ctx context.Context, senderID uuid.UUID, senderRole string, receiverID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Message content is required")
	}
	if senderID == receiverID {
		return nil, apperr.Validation("Cannot message yourself")
	}

	patientID, doctorID := Parties(senderID, senderRole, receiverID)
	unlocked, err := s.Unlocked(ctx, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, apperr.Authorization("Conversation is locked. Schedule must be approved first.").
			With("code", "CONVERSATION_LOCKED")
	}

	var msg *models.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receiver models.User
		if err := tx.First(&receiver, "id = ? AND is_deleted = ?", receiverID, false).Error; err != nil {
			return notFoundOr(err, "Receiver not found")
		}

		conv, err := conversationFor(tx, patientID, doctorID)
		if err != nil {
			return err
		}

		now := s.now()
		msg = &models.Message{
			ConversationID: conv.ID,
			SenderID:       senderID,
			ReceiverID:     receiverID,
			Content:        content,
			CreatedAt:      now,
		}
		if err := tx.Create(msg).Error; err != nil {
			return apperr.Internal("Error sending message", err)
		}
		if err := tx.Model(conv).Update("last_message_at", now).Error; err != nil {
			return apperr.Internal("Error sending message", err)
		}

		return s.outbox.Enqueue(tx, Notice{
			RecipientID: receiverID,
			Message:     content,
			Data: map[string]any{
				"id":              msg.ID.String(),
				"conversation_id": conv.ID.String(),
				"sender_id":       senderID.String(),
				"created_at":      now,
			},
			Realtime: true,
			Event:    "new_message",
		})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return msg, nil
}

func conversationFor(tx *gorm.DB, patientID, doctorID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := tx.Where(models.Conversation{PatientID: patientID, DoctorID: doctorID}).
		FirstOrCreate(&conv).Error
	if err != nil {
		return nil, apperr.Internal("Failed to open conversation", err)
	}
	return &conv, nil
}

func (s *MessagingService) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	var convs []models.Conversation
	if err := s.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		Where("patient_id = ? OR doctor_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, apperr.Internal("Error fetching conversations", err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := ConversationSummary{Conversation: c}

		var last models.Message
		err := s.db.WithContext(ctx).
			Where("conversation_id = ? AND is_deleted = ?", c.ID, false).
			Order("created_at DESC").
			First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal("Error fetching conversations", err)
		}

		if err := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("conversation_id = ? AND receiver_id = ? AND read_at IS NULL AND is_deleted = ?", c.ID, userID, false).
			Count(&summary.UnreadCount).Error; err != nil {
			return nil, apperr.Internal("Error fetching conversations", err)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *MessagingService) Messages(ctx context.Context, userID, conversationID uuid.UUID, page, limit int) ([]models.Message, Pagination, error) {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return nil, Pagination{}, err
	}
	page, limit = normalizePage(page, limit, 50, 100)

	q := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.Internal("Error fetching messages", err)
	}
	var out []models.Message
	if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error; err != nil {
		return nil, Pagination{}, apperr.Internal("Error fetching messages", err)
	}
	// oldest first for display
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, NewPagination(total, page, limit), nil
}

func (s *MessagingService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND read_at IS NULL", conversationID, userID).
		Update("read_at", s.now())
	if res.Error != nil {
		return 0, apperr.Internal("Error marking messages as read", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete soft-deletes a message; only its sender may do so.
func (s *MessagingService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", messageID, userID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return apperr.Internal("Error deleting message", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Message not found or unauthorized")
	}
	return nil
}

func (s *MessagingService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL AND is_deleted = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, apperr.Internal("Error counting unread messages", err)
	}
	return n, nil
}

func (s *MessagingService) Search(ctx context.Context, userID uuid.UUID, query string) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}
	var out []models.Message
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND is_deleted = ?", userID, userID, false).
		Where("LOWER(content) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("created_at DESC").
		Limit(50).
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("Error searching messages", err)
	}
	return out, nil
}

func (s *MessagingService) participant(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, notFoundOr(err, "Conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.NotFound("Conversation not found")
	}
	return &conv, nil
}

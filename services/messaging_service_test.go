package services

import (
	"context"
	"errors"
	"testing"

	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
)

func TestSendLockedUntilScheduleAccepted(t *testing.T) {
	f := newScheduleFixture(t, 5)
	messaging := NewMessagingService(f.db, f.svc, NewOutbox(f.waker))
	ctx := context.Background()

	_, err := messaging.Send(ctx, f.patient.ID, models.RoleUser, f.doctor.ID, "hello")
	expectKind(t, err, apperr.KindAuthorization)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Details["code"] != "CONVERSATION_LOCKED" {
		t.Fatalf("locked error = %#v", err)
	}
	if appErr.Kind.Status() != 403 {
		t.Fatalf("locked status = %d, want 403", appErr.Kind.Status())
	}

	s := f.create(t, 16, "09:00", "10:00")
	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = messaging.Send(ctx, f.patient.ID, models.RoleUser, f.doctor.ID, "hello")
	expectKind(t, err, apperr.KindAuthorization)

	if _, err := f.svc.Accept(ctx, f.doctor.ID, s.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	sent, err := messaging.Send(ctx, f.patient.ID, models.RoleUser, f.doctor.ID, "  hello doctor  ")
	if err != nil {
		t.Fatalf("send after accept: %v", err)
	}
	if sent.Content != "hello doctor" {
		t.Fatalf("content = %q", sent.Content)
	}
	reply, err := messaging.Send(ctx, f.doctor.ID, models.RoleDoctor, f.patient.ID, "see you friday")
	if err != nil {
		t.Fatalf("doctor reply: %v", err)
	}
	if reply.ConversationID != sent.ConversationID {
		t.Fatalf("reply opened a second conversation")
	}

	// a third user has no accepted schedule with this doctor
	_, err = messaging.Send(ctx, f.other.ID, models.RoleUser, f.doctor.ID, "hi")
	expectKind(t, err, apperr.KindAuthorization)
}

func TestSendRejectsEmptyAndSelfMessages(t *testing.T) {
	f := newScheduleFixture(t, 5)
	messaging := NewMessagingService(f.db, f.svc, NewOutbox(f.waker))
	ctx := context.Background()

	_, err := messaging.Send(ctx, f.patient.ID, models.RoleUser, f.doctor.ID, "   ")
	expectKind(t, err, apperr.KindValidation)
	_, err = messaging.Send(ctx, f.patient.ID, models.RoleUser, f.patient.ID, "me")
	expectKind(t, err, apperr.KindValidation)
}

func TestConversationReadState(t *testing.T) {
	f := newScheduleFixture(t, 5)
	messaging := NewMessagingService(f.db, f.svc, NewOutbox(f.waker))
	ctx := context.Background()

	s := f.create(t, 16, "09:00", "10:00")
	if _, err := f.svc.Register(ctx, f.patient.ID, s.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Accept(ctx, f.doctor.ID, s.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	for _, body := range []string{"first", "second"} {
		if _, err := messaging.Send(ctx, f.patient.ID, models.RoleUser, f.doctor.ID, body); err != nil {
			t.Fatalf("send %s: %v", body, err)
		}
	}

	convs, err := messaging.Conversations(ctx, f.doctor.ID)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 2 || convs[0].LastMessage == nil {
		t.Fatalf("doctor conversations = %+v", convs)
	}
	convID := convs[0].Conversation.ID

	if _, _, err := messaging.Messages(ctx, f.other.ID, convID, 1, 50); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("outsider read messages: %v", err)
	}

	n, err := messaging.MarkRead(ctx, f.doctor.ID, convID)
	if err != nil || n != 2 {
		t.Fatalf("mark read = %d %v, want 2", n, err)
	}
	unread, err := messaging.UnreadCount(ctx, f.doctor.ID)
	if err != nil || unread != 0 {
		t.Fatalf("unread after mark read = %d %v", unread, err)
	}

	found, err := messaging.Search(ctx, f.patient.ID, "SECOND")
	if err != nil || len(found) != 1 {
		t.Fatalf("search = %d %v", len(found), err)
	}
}

package services

import (
	"testing"

	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
)

func TestTransitionLegalEdges(t *testing.T) {
	cases := []struct {
		from   models.ScheduleStatus
		action Action
		to     models.ScheduleStatus
	}{
		{models.StatusAvailable, ActionRegister, models.StatusPending},
		{models.StatusAvailable, ActionUpdate, models.StatusAvailable},
		{models.StatusAvailable, ActionDelete, statusRemoved},
		{models.StatusPending, ActionAccept, models.StatusAccepted},
		{models.StatusPending, ActionReject, models.StatusAvailable},
		{models.StatusPending, ActionCancelPending, models.StatusAvailable},
		{models.StatusPending, ActionCancel, models.StatusAvailable},
		{models.StatusAccepted, ActionCancel, models.StatusAvailable},
		{models.StatusAccepted, ActionComplete, models.StatusCompleted},
		{models.StatusBooked, ActionCancel, models.StatusAvailable},
		{models.StatusBooked, ActionComplete, models.StatusCompleted},
		{models.StatusCancelled, ActionReactivate, models.StatusAvailable},
	}

	for _, c := range cases {
		got, err := Transition(c.from, c.action)
		if err != nil {
			t.Errorf("Transition(%s, %s): unexpected error %v", c.from, c.action, err)
			continue
		}
		if got != c.to {
			t.Errorf("Transition(%s, %s) = %q, want %q", c.from, c.action, got, c.to)
		}
	}
}

func TestTransitionRejectsEverythingElse(t *testing.T) {
	actions := []Action{
		ActionRegister, ActionCancelPending, ActionCancel, ActionAccept, ActionReject,
		ActionComplete, ActionReactivate, ActionUpdate, ActionDelete,
	}

	for _, from := range allStatuses {
		for _, action := range actions {
			if _, ok := transitions[edge{from, action}]; ok {
				continue
			}
			got, err := Transition(from, action)
			if err == nil {
				t.Errorf("Transition(%s, %s) = %s, expected conflict", from, action, got)
				continue
			}
			if apperr.KindOf(err) != apperr.KindConflict {
				t.Errorf("Transition(%s, %s) kind = %v, want conflict", from, action, apperr.KindOf(err))
			}
			if got != from {
				t.Errorf("Transition(%s, %s) moved to %s on failure", from, action, got)
			}
		}
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, terminal := range []models.ScheduleStatus{models.StatusCompleted, models.StatusRejected} {
		for e := range transitions {
			if e.from == terminal {
				t.Errorf("status %s has outgoing edge %s", terminal, e.action)
			}
		}
	}
}

func TestSourcesOf(t *testing.T) {
	contains := func(list []models.ScheduleStatus, s models.ScheduleStatus) bool {
		for _, x := range list {
			if x == s {
				return true
			}
		}
		return false
	}

	cancel := SourcesOf(ActionCancel)
	if len(cancel) != 3 {
		t.Fatalf("SourcesOf(cancel) = %v, want 3 statuses", cancel)
	}
	for _, s := range []models.ScheduleStatus{models.StatusPending, models.StatusAccepted, models.StatusBooked} {
		if !contains(cancel, s) {
			t.Errorf("SourcesOf(cancel) missing %s", s)
		}
	}

	register := SourcesOf(ActionRegister)
	if len(register) != 1 || register[0] != models.StatusAvailable {
		t.Errorf("SourcesOf(register) = %v, want [available]", register)
	}

	complete := SourcesOf(ActionComplete)
	if !contains(complete, models.StatusAccepted) || !contains(complete, models.StatusBooked) || contains(complete, models.StatusPending) {
		t.Errorf("SourcesOf(complete) = %v", complete)
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus("pending") || !ValidStatus("booked") {
		t.Fatal("known statuses must be valid")
	}
	if ValidStatus("archived") || ValidStatus("") {
		t.Fatal("unknown statuses must be invalid")
	}
}

package services

import (
	"fmt"

	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
)

type Action string

const (
	ActionRegister      Action = "register"
	ActionCancelPending Action = "cancel_pending"
	ActionCancel        Action = "cancel"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionComplete      Action = "complete"
	ActionReactivate    Action = "reactivate"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
)

// statusRemoved is the target of a delete: the row no longer exists.
const statusRemoved models.ScheduleStatus = ""

type edge struct {
	from   models.ScheduleStatus
	action Action
}

var transitions = map[edge]models.ScheduleStatus{
	{models.StatusAvailable, ActionRegister}: models.StatusPending,
	{models.StatusAvailable, ActionUpdate}:   models.StatusAvailable,
	{models.StatusAvailable, ActionDelete}:   statusRemoved,

	{models.StatusPending, ActionAccept}:        models.StatusAccepted,
	{models.StatusPending, ActionReject}:        models.StatusAvailable,
	{models.StatusPending, ActionCancelPending}: models.StatusAvailable,
	{models.StatusPending, ActionCancel}:        models.StatusAvailable,

	{models.StatusAccepted, ActionCancel}:   models.StatusAvailable,
	{models.StatusAccepted, ActionComplete}: models.StatusCompleted,

	{models.StatusBooked, ActionCancel}:   models.StatusAvailable,
	{models.StatusBooked, ActionComplete}: models.StatusCompleted,

	{models.StatusCancelled, ActionReactivate}: models.StatusAvailable,
}

var allStatuses = []models.ScheduleStatus{
	models.StatusAvailable,
	models.StatusPending,
	models.StatusAccepted,
	models.StatusCompleted,
	models.StatusCancelled,
	models.StatusRejected,
	models.StatusBooked,
}

// Transition returns the status reached by applying action in from, or a Conflict.
func Transition(from models.ScheduleStatus, action Action) (models.ScheduleStatus, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return from, apperr.Conflict(fmt.Sprintf("Cannot %s a schedule that is %s", humanAction(action), from)).
			With("status", from)
	}
	return to, nil
}

// SourcesOf lists every status from which action is legal. Conditional writes use it in
// their WHERE clause so a concurrent transition cannot slip in between read and write.
func SourcesOf(action Action) []models.ScheduleStatus {
	var out []models.ScheduleStatus
	for _, s := range allStatuses {
		if _, ok := transitions[edge{s, action}]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ValidStatus reports whether s is a known schedule status.
func ValidStatus(s string) bool {
	for _, st := range allStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

func humanAction(a Action) string {
	switch a {
	case ActionCancelPending:
		return "cancel the pending registration of"
	case ActionRegister:
		return "register for"
	default:
		return string(a)
	}
}

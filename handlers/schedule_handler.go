package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/services"
)

// CreateScheduleRequest carries no format rules for the slot itself: the service checks
// the doctor, week and quota before it looks at the times.
type CreateScheduleRequest struct {
	Date            string  `json:"date"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	AppointmentType string  `json:"appointmentType"`
	MeetingLink     *string `json:"meetingLink" validate:"omitempty,url"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateScheduleRequest struct {
	Date            *string `json:"date"`
	StartTime       *string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime         *string `json:"endTime" validate:"omitempty,hhmm"`
	AppointmentType *string `json:"appointmentType" validate:"omitempty,oneof=online offline"`
	MeetingLink     *string `json:"meetingLink" validate:"omitempty,url"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type CancelScheduleRequest struct {
	CancelReason string `json:"cancelReason"`
}

type RejectScheduleRequest struct {
	RejectedReason string `json:"rejectedReason"`
}

func CreateSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return apperr.Respond(c, err)
	}

	result, err := svc.Schedules.Create(c.UserContext(), doctorID, services.CreateScheduleInput{
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AppointmentType: req.AppointmentType,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Schedule created successfully",
		"schedule": result.Schedule,
		"quota":    result.Quota,
	})
}

func UpdateSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req UpdateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	in := services.UpdateScheduleInput{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AppointmentType: req.AppointmentType,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		date, err := parseDay(*req.Date)
		if err != nil {
			return apperr.Respond(c, err)
		}
		in.Date = &date
	}

	schedule, err := svc.Schedules.Update(c.UserContext(), doctorID, scheduleID, in)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule updated successfully", "schedule": schedule})
}

func DeleteSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	quota, err := svc.Schedules.Delete(c.UserContext(), doctorID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule deleted successfully", "quota": quota})
}

func RegisterSchedule(c *fiber.Ctx) error {
	patientID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.Register(c.UserContext(), patientID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Schedule registered successfully. Waiting for doctor approval.",
		"schedule": schedule,
	})
}

func CancelPendingSchedule(c *fiber.Ctx) error {
	patientID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.CancelPending(c.UserContext(), patientID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Registration cancelled successfully", "schedule": schedule})
}

func CancelSchedule(c *fiber.Ctx) error {
	patientID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req CancelScheduleRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badJSON(c)
	}

	schedule, err := svc.Schedules.Cancel(c.UserContext(), patientID, scheduleID, req.CancelReason)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule cancelled successfully", "schedule": schedule})
}

func AcceptSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.Accept(c.UserContext(), doctorID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule accepted successfully", "schedule": schedule})
}

func RejectSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req RejectScheduleRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badJSON(c)
	}

	schedule, err := svc.Schedules.Reject(c.UserContext(), doctorID, scheduleID, req.RejectedReason)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule rejected successfully", "schedule": schedule})
}

func CompleteSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.Complete(c.UserContext(), doctorID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule completed successfully", "schedule": schedule})
}

func ReactivateSchedule(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.Reactivate(c.UserContext(), doctorID, scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Schedule reactivated successfully", "schedule": schedule})
}

// scheduleQuery collects the shared list filters from the query string.
func scheduleQuery(c *fiber.Ctx) (services.ScheduleQuery, error) {
	q := services.ScheduleQuery{
		Status:     c.Query("status"),
		DoctorType: c.Query("doctorType"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 10),
	}
	var err error
	if q.Date, err = optionalDate(c.Query("date")); err != nil {
		return q, err
	}
	if q.From, err = optionalDate(c.Query("from")); err != nil {
		return q, err
	}
	if q.To, err = optionalDate(c.Query("to")); err != nil {
		return q, err
	}
	if q.DoctorID, err = optionalUUID(c.Query("doctorId"), "doctor ID"); err != nil {
		return q, err
	}
	return q, nil
}

func GetMySchedules(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	q, err := scheduleQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedules, err := svc.Schedules.ListByDoctor(c.UserContext(), doctorID, q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"schedules": schedules, "count": len(schedules)})
}

func GetPendingSchedules(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	schedules, err := svc.Schedules.ListPending(c.UserContext(), doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"schedules": schedules, "count": len(schedules)})
}

func GetDoctorSchedules(c *fiber.Ctx) error {
	doctorID, err := uuidParam(c, "doctorId", "doctor ID")
	if err != nil {
		return apperr.Respond(c, err)
	}
	q, err := scheduleQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedules, err := svc.Schedules.ListByDoctor(c.UserContext(), doctorID, q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"schedules": schedules, "count": len(schedules)})
}

func GetAvailableSchedules(c *fiber.Ctx) error {
	q, err := scheduleQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedules, err := svc.Schedules.ListAvailable(c.UserContext(), q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"schedules": schedules, "count": len(schedules)})
}

func GetAllSchedules(c *fiber.Ctx) error {
	q, err := scheduleQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	page, err := svc.Schedules.ListAll(c.UserContext(), q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func GetMyRegisteredSchedules(c *fiber.Ctx) error {
	patientID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	q, err := scheduleQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedules, err := svc.Schedules.ListRegistered(c.UserContext(), patientID, q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"schedules": schedules, "count": len(schedules)})
}

// GetScheduleQuota reports the doctor's weekly window after rolling it forward.
func GetScheduleQuota(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	quota, err := svc.Schedules.QuotaStatus(c.UserContext(), doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"weekly":     quota.Weekly,
		"used":       quota.Used,
		"remaining":  quota.Remaining,
		"resetDate":  formatOptional(quota.ResetDate),
		"package":    quota.Package,
		"isPriority": quota.IsPriority,
		"canCreate":  quota.Remaining > 0,
	})
}

func GetSchedule(c *fiber.Ctx) error {
	scheduleID, err := uuidParam(c, "id", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	schedule, err := svc.Schedules.Get(c.UserContext(), scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(schedule)
}

func formatOptional(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/services"
)

type CreateFeedbackRequest struct {
	ScheduleID  string `json:"scheduleId" validate:"required,uuid"`
	Rating      int    `json:"rating" validate:"required"`
	Comment     string `json:"comment"`
	IsAnonymous bool   `json:"isAnonymous"`
}

func CreateFeedback(c *fiber.Ctx) error {
	patientID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	scheduleID, _ := uuid.Parse(req.ScheduleID)

	fb, err := svc.Feedback.Create(c.UserContext(), patientID, services.CreateFeedbackInput{
		ScheduleID:  scheduleID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Feedback submitted successfully", "feedback": fb})
}

func GetScheduleFeedback(c *fiber.Ctx) error {
	scheduleID, err := uuidParam(c, "scheduleId", "schedule ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	fb, err := svc.Feedback.BySchedule(c.UserContext(), scheduleID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"feedback": fb})
}

func GetMyDoctorFeedback(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	items, pagination, err := svc.Feedback.ForDoctor(c.UserContext(), doctorID, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"feedbacks": items, "pagination": pagination})
}

func GetMyFeedbackStats(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	stats, err := svc.Feedback.Stats(c.UserContext(), &doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(stats)
}

func AdminListFeedback(c *fiber.Ctx) error {
	items, pagination, err := svc.Feedback.List(c.UserContext(), queryInt(c, "rating", 0), queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"feedbacks": items, "pagination": pagination})
}

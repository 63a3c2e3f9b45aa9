package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/services"
)

type DoctorApplicationRequest struct {
	DoctorType     string   `json:"doctorType" validate:"required"`
	Workplace      *string  `json:"workplace" validate:"omitempty,max=255"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	Certifications []string `json:"certifications" validate:"omitempty,dive,url"`
	Education      []string `json:"education"`
	WorkExperience []string `json:"workExperience"`
}

type UpdateDoctorProfileRequest struct {
	Workplace      *string  `json:"workplace" validate:"omitempty,max=255"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	Certifications []string `json:"certifications" validate:"omitempty,dive,url"`
	Education      []string `json:"education"`
	WorkExperience []string `json:"workExperience"`
}

type HandleApplicationRequest struct {
	DoctorID         string `json:"doctorId" validate:"required,uuid"`
	Status           string `json:"status" validate:"required"`
	RejectionMessage string `json:"rejectionMessage"`
}

func ApplyAsDoctor(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req DoctorApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	doctor, err := svc.Doctors.Apply(c.UserContext(), userID, services.ApplyInput{
		DoctorType:     req.DoctorType,
		Workplace:      req.Workplace,
		Description:    req.Description,
		Certifications: req.Certifications,
		Education:      req.Education,
		WorkExperience: req.WorkExperience,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Application submitted successfully. Please wait for admin approval.",
		"doctor":  doctor,
	})
}

func ListDoctors(c *fiber.Ctx) error {
	doctors, err := svc.Doctors.List(c.UserContext(), c.Query("doctorType"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"doctors": doctors, "count": len(doctors)})
}

func GetDoctor(c *fiber.Ctx) error {
	doctorID, err := uuidParam(c, "doctorId", "doctor ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	doctor, err := svc.Doctors.GetAccepted(c.UserContext(), doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(doctor)
}

func GetMyDoctorProfile(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	doctor, err := svc.Doctors.Get(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(doctor)
}

func UpdateMyDoctorProfile(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpdateDoctorProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	doctor, err := svc.Doctors.UpdateProfile(c.UserContext(), userID, services.UpdateDoctorInput{
		Workplace:      req.Workplace,
		Description:    req.Description,
		Certifications: req.Certifications,
		Education:      req.Education,
		WorkExperience: req.WorkExperience,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(doctor)
}

func ListPendingApplications(c *fiber.Ctx) error {
	doctors, err := svc.Doctors.Pending(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"doctors": doctors, "count": len(doctors)})
}

func HandleApplication(c *fiber.Ctx) error {
	var req HandleApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	doctorID, err := optionalUUID(req.DoctorID, "doctor ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	doctor, err := svc.Doctors.Handle(c.UserContext(), *doctorID, req.Status, req.RejectionMessage)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Application " + req.Status + " successfully", "doctor": doctor})
}

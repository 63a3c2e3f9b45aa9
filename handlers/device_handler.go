package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/notifications"
	"gorm.io/gorm/clause"
)

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

// RegisterDevice stores an Expo push token for the caller. A token already held by
// another account moves to this one.
func RegisterDevice(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req RegisterDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !notifications.ValidToken(req.Token) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Expo push token"})
	}

	device := models.Device{UserID: userID, Token: req.Token, Platform: req.Platform}
	if err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&device).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register device"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Device registered"})
}

func UnregisterDevice(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	res := database.DB.Where("token = ? AND user_id = ?", c.Params("token"), userID).Delete(&models.Device{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove device"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Device not found"})
	}
	return c.JSON(fiber.Map{"message": "Device removed"})
}

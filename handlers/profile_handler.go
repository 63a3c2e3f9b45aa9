package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
)

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=2"`
	Phone     *string `json:"phone" validate:"omitempty,min=8,max=20"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
	Address   *string `json:"address"`
}

func GetProfile(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := database.DB.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	resp := fiber.Map{"user": user}
	if user.Role == models.RoleDoctor {
		if d, err := svc.Doctors.Get(c.UserContext(), userID); err == nil {
			resp["doctor"] = d
		}
	}
	return c.JSON(resp)
}

func UpdateProfile(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var user models.User
	if err := database.DB.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}

	database.DB.First(&user, "id = ?", userID)
	return c.JSON(user)
}

// DeleteAccount soft-deletes the caller. The row stays for schedule and payment history.
func DeleteAccount(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	res := database.DB.Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", userID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	database.DB.Where("user_id = ?", userID).Delete(&models.Device{})

	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/services"
)

func GetNotifications(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	page, limit := queryInt(c, "page", 1), queryInt(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	db := database.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	var total, unread int64
	if err := db.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	database.DB.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&unread)

	var items []models.Notification
	if err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&items).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}

	return c.JSON(fiber.Map{
		"notifications": items,
		"unreadCount":   unread,
		"pagination":    services.NewPagination(total, page, limit),
	})
}

func MarkNotificationRead(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "notification ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	res := database.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func DeleteNotification(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "notification ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	res := database.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete notification"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

func DeleteAllNotifications(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	res := database.DB.Where("user_id = ?", userID).Delete(&models.Notification{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete notifications"})
	}
	return c.JSON(fiber.Map{"message": "All notifications deleted", "deleted": res.RowsAffected})
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func NotificationRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	notifications := api.Group("/notifications", middleware.Protected())
	notifications.Get("", handlers.GetNotifications)
	notifications.Patch("/:id/read", handlers.MarkNotificationRead)
	notifications.Delete("/:id", handlers.DeleteNotification)
	notifications.Delete("", handlers.DeleteAllNotifications)
}

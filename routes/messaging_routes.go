package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	messages := api.Group("/messages", middleware.Protected())
	messages.Get("/unlock-status/:userId/:doctorId", handlers.GetUnlockStatus)
	messages.Post("/send", handlers.SendMessage)
	messages.Get("/conversations", handlers.GetConversations)
	messages.Get("/conversation/:conversationId", handlers.GetConversationMessages)
	messages.Put("/conversation/:conversationId/read", handlers.MarkConversationRead)
	messages.Delete("/message/:messageId", handlers.DeleteMessage)
	messages.Get("/unread-count", handlers.GetUnreadMessageCount)
	messages.Get("/search", handlers.SearchMessages)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(handlers.ServeWs))
}

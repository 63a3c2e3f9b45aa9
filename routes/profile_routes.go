package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	users := api.Group("/users", middleware.Protected())
	users.Get("/profile", handlers.GetProfile)
	users.Put("/profile", handlers.UpdateProfile)
	users.Delete("/account", handlers.DeleteAccount)
	users.Post("/recharge", handlers.RechargeBalance)
	users.Get("/recharge/status/:orderCode", handlers.GetRechargeStatus)
	users.Get("/balance", handlers.GetBalance)
	users.Get("/transactions", handlers.GetMyTransactions)

	devices := api.Group("/devices", middleware.Protected())
	devices.Post("", handlers.RegisterDevice)
	devices.Delete("/:token", handlers.UnregisterDevice)
}

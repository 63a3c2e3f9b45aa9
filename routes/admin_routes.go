package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Get("/stats", handlers.GetDashboardStats)
	admin.Get("/users", handlers.GetAllUsers)
	admin.Get("/doctors/pending", handlers.ListPendingApplications)
	admin.Patch("/doctors/handle", handlers.HandleApplication)
	admin.Get("/payments", handlers.AdminGetPayments)
	admin.Get("/feedback", handlers.AdminListFeedback)
}

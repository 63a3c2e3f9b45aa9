package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func DoctorRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	doctors := api.Group("/doctors")
	doctors.Post("/apply", middleware.Protected(), handlers.ApplyAsDoctor)
	doctors.Get("/profile/me", middleware.Protected(), handlers.GetMyDoctorProfile)
	doctors.Put("/profile/me", middleware.Protected(), middleware.DoctorRequired(), handlers.UpdateMyDoctorProfile)
	doctors.Get("", handlers.ListDoctors)
	doctors.Get("/:doctorId", handlers.GetDoctor)
}

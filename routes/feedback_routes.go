package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func FeedbackRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	feedback := api.Group("/feedback", middleware.Protected())
	feedback.Post("", middleware.PatientRequired(), handlers.CreateFeedback)
	feedback.Get("/schedule/:scheduleId", handlers.GetScheduleFeedback)
	feedback.Get("/doctor", middleware.DoctorRequired(), handlers.GetMyDoctorFeedback)
	feedback.Get("/doctor/stats", middleware.DoctorRequired(), handlers.GetMyFeedbackStats)
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

// ScheduleRoutes mounts the lifecycle endpoints. Static paths are registered before
// "/:id" so they are not captured by it.
func ScheduleRoutes(app *fiber.App) {
	api := app.Group("/api/v1")
	schedules := api.Group("/schedules")

	schedules.Get("/available", handlers.GetAvailableSchedules)
	schedules.Get("/all", handlers.GetAllSchedules)
	schedules.Get("/doctor/:doctorId", handlers.GetDoctorSchedules)

	doctor := []fiber.Handler{middleware.Protected(), middleware.DoctorRequired()}
	schedules.Get("/my-schedules", append(doctor, handlers.GetMySchedules)...)
	schedules.Get("/pending", append(doctor, handlers.GetPendingSchedules)...)
	schedules.Get("/quota", append(doctor, handlers.GetScheduleQuota)...)
	schedules.Post("/create", append(doctor, handlers.CreateSchedule)...)
	schedules.Post("/accept/:id", append(doctor, handlers.AcceptSchedule)...)
	schedules.Post("/reject/:id", append(doctor, handlers.RejectSchedule)...)
	schedules.Post("/complete/:id", append(doctor, handlers.CompleteSchedule)...)
	schedules.Post("/reactivate/:id", append(doctor, handlers.ReactivateSchedule)...)

	patient := []fiber.Handler{middleware.Protected(), middleware.PatientRequired()}
	schedules.Get("/my-registered", append(patient, handlers.GetMyRegisteredSchedules)...)
	schedules.Post("/register/:id", append(patient, handlers.RegisterSchedule)...)
	schedules.Post("/cancel-pending/:id", append(patient, handlers.CancelPendingSchedule)...)
	schedules.Post("/cancel/:id", append(patient, handlers.CancelSchedule)...)

	schedules.Get("/:id", handlers.GetSchedule)
	schedules.Put("/:id", append(doctor, handlers.UpdateSchedule)...)
	schedules.Delete("/:id", append(doctor, handlers.DeleteSchedule)...)
}

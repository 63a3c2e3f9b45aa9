package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func PaymentRoutes(app *fiber.App, webhookPerSecond int) {
	api := app.Group("/api/v1")

	payments := api.Group("/payments")
	payments.Get("/packages", handlers.GetPackages)
	payments.Get("/health", handlers.GetPaymentHealth)
	payments.Get("/recharge/success", handlers.RechargeSuccess)
	payments.Get("/recharge/cancel", handlers.RechargeCancel)

	pkg := payments.Group("/package")
	pkg.Post("/webhook", middleware.WebhookLimiter(webhookPerSecond), handlers.HandlePackageWebhook)
	pkg.Get("/success", handlers.PackagePaymentSuccess)
	pkg.Get("/cancel", handlers.PackagePaymentCancel)

	doctor := []fiber.Handler{middleware.Protected(), middleware.DoctorRequired()}
	pkg.Post("/create", append(doctor, handlers.CreatePackagePayment)...)
	pkg.Get("/status/:orderCode", append(doctor, handlers.GetPaymentStatus)...)
	pkg.Get("/history", append(doctor, handlers.GetPaymentHistory)...)
	pkg.Post("/cancel/:orderCode", append(doctor, handlers.CancelPackagePayment)...)
	pkg.Get("/statistics", append(doctor, handlers.GetPaymentStatistics)...)
}

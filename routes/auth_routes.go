package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.RegisterUser)
	auth.Post("/login", handlers.LoginUser)
	auth.Post("/verify-email", handlers.VerifyEmail)
	auth.Post("/resend-verification", handlers.ResendVerification)

	// Must be mounted before ProfileRoutes puts /users behind the JWT guard.
	api.Post("/users/verify-email", handlers.VerifyEmail)
}

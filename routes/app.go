package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/middleware"
)

// NewApp builds the fiber app with the shared middleware stack and error handler.
// Routes are mounted separately by Register.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "Telecare API",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  errorHandler,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(middleware.RequestLogger(logger.Log))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return apperr.Respond(c, err)
	}

	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		logger.Log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("🔥 Unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// Register mounts every route group on app.
func Register(app *fiber.App, webhookPerSecond int) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Telecare API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	AuthRoutes(app)
	ProfileRoutes(app)
	DoctorRoutes(app)
	ScheduleRoutes(app)
	AdminRoutes(app)
	PaymentRoutes(app, webhookPerSecond)
	FeedbackRoutes(app)
	MessagingRoutes(app)
	NotificationRoutes(app)
	UploadRoutes(app)
	BlogRoutes(app)
}

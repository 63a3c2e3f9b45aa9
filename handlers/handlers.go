package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/middleware"
	"github.com/telecare/telehealth_api/services"
	"gorm.io/datatypes"
)

// Services are the collaborators the handlers delegate to. Setup must run before routes
// are served.
type Services struct {
	Schedules     *services.ScheduleService
	Subscriptions *services.SubscriptionService
	Feedback      *services.FeedbackService
	Messaging     *services.MessagingService
	Doctors       *services.DoctorService
	Balances      *services.BalanceService
	Blogs         *services.BlogService
}

var svc Services

func Setup(s Services) {
	svc = s
}

// currentUser returns a *fiber.Error when the token carries no usable identity; the app
// error handler renders it.
func currentUser(c *fiber.Ctx) (uuid.UUID, string, error) {
	id, role, err := middleware.Identity(c)
	if err != nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	return id, role, nil
}

func uuidParam(c *fiber.Ctx, name, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + label)
	}
	return id, nil
}

func optionalUUID(raw, label string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("Invalid " + label)
	}
	return &id, nil
}

// parseDay accepts YYYY-MM-DD or an RFC3339 timestamp.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid date, use YYYY-MM-DD")
	}
	return t, nil
}

func optionalDate(raw string) (*datatypes.Date, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDay(raw)
	if err != nil {
		return nil, err
	}
	d := datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	return &d, nil
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// parseOptionalBody leaves out untouched when the request has no body.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func badJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
}

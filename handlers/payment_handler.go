package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/payments"
	"github.com/telecare/telehealth_api/services"
)

type CreatePackagePaymentRequest struct {
	PackageType string `json:"packageType"`
	Duration    int    `json:"duration"`
}

func GetPackages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"packages": svc.Subscriptions.Packages()})
}

func CreatePackagePayment(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreatePackagePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	result, err := svc.Subscriptions.CreatePayment(c.UserContext(), doctorID, req.PackageType, req.Duration)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Payment link created successfully",
		"orderCode":   result.Payment.OrderCode,
		"paymentUrl":  result.Payment.PaymentURL,
		"amount":      result.Payment.Amount,
		"expiresAt":   result.ExpiresAt,
		"packageInfo": result.PackageInfo,
		"upgradeInfo": result.UpgradeInfo,
	})
}

func orderCodeParam(c *fiber.Ctx) (int64, error) {
	code, err := strconv.ParseInt(c.Params("orderCode"), 10, 64)
	if err != nil || code <= 0 {
		return 0, apperr.Validation("Invalid order code")
	}
	return code, nil
}

func GetPaymentStatus(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	code, err := orderCodeParam(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	payment, err := svc.Subscriptions.CheckStatus(c.UserContext(), doctorID, code)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func GetPaymentHistory(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	page, err := svc.Subscriptions.History(c.UserContext(), services.PaymentQuery{
		DoctorID:    &doctorID,
		Status:      c.Query("status"),
		PackageType: c.Query("packageType"),
		Page:        queryInt(c, "page", 1),
		Limit:       queryInt(c, "limit", 10),
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func CancelPackagePayment(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	code, err := orderCodeParam(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	payment, err := svc.Subscriptions.Cancel(c.UserContext(), doctorID, code)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment cancelled successfully", "payment": payment})
}

// HandlePackageWebhook accepts PayOS callbacks. Numbers are decoded as json.Number so
// the signature is checked over the exact digits the gateway signed.
func HandlePackageWebhook(c *fiber.Ctx) error {
	var hook payments.Webhook
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	if err := dec.Decode(&hook); err != nil {
		return badJSON(c)
	}

	msg, err := svc.Subscriptions.HandleWebhook(c.UserContext(), &hook)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			logger.Log.Error().Err(err).Msg("🔥 Package webhook failed")
		}
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

func PackagePaymentSuccess(c *fiber.Ctx) error {
	code, _ := strconv.ParseInt(c.Query("orderCode"), 10, 64)
	return c.Redirect(svc.Subscriptions.ReturnSucceeded(c.UserContext(), code), fiber.StatusFound)
}

func PackagePaymentCancel(c *fiber.Ctx) error {
	code, _ := strconv.ParseInt(c.Query("orderCode"), 10, 64)
	return c.Redirect(svc.Subscriptions.ReturnCancelled(c.UserContext(), code), fiber.StatusFound)
}

func GetPaymentStatistics(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	stats, err := svc.Subscriptions.Statistics(c.UserContext(), doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"statistics": stats})
}

// GetPaymentHealth answers 503 when any payment dependency is down.
func GetPaymentHealth(c *fiber.Ctx) error {
	report := svc.Subscriptions.Health(c.UserContext(), config.Config("APP_VERSION"))
	status := fiber.StatusOK
	if !report.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
)

type RechargeRequest struct {
	Amount int64 `json:"amount"`
}

func RechargeBalance(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req RechargeRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	result, err := svc.Balances.Recharge(c.UserContext(), userID, req.Amount)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Payment link created successfully",
		"orderCode":  result.Recharge.OrderCode,
		"paymentUrl": result.Recharge.PaymentURL,
		"amount":     result.Recharge.Amount,
		"expiresAt":  result.ExpiresAt,
	})
}

func GetBalance(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	info, err := svc.Balances.Balance(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(info)
}

func GetMyTransactions(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	page, err := svc.Balances.Transactions(c.UserContext(), userID, c.Query("status"),
		queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func GetRechargeStatus(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	code, err := orderCodeParam(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	recharge, err := svc.Balances.Status(c.UserContext(), userID, code)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"recharge": recharge})
}

func RechargeSuccess(c *fiber.Ctx) error {
	code, _ := strconv.ParseInt(c.Query("orderCode"), 10, 64)
	return c.Redirect(svc.Balances.ReturnSucceeded(c.UserContext(), code), fiber.StatusFound)
}

func RechargeCancel(c *fiber.Ctx) error {
	code, _ := strconv.ParseInt(c.Query("orderCode"), 10, 64)
	return c.Redirect(svc.Balances.ReturnCancelled(c.UserContext(), code), fiber.StatusFound)
}

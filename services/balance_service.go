package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/payments"
	"github.com/telecare/telehealth_api/utils"
	"gorm.io/gorm"
)

// BalanceService tops up user wallets through the payment gateway.
type BalanceService struct {
	db          *gorm.DB
	gateway     payments.Gateway
	outbox      *Outbox
	now         func() time.Time
	orderCode   func() int64
	apiURL      string
	frontendURL string
}

func NewBalanceService(db *gorm.DB, gateway payments.Gateway, outbox *Outbox, apiURL, frontendURL string) *BalanceService {
	return &BalanceService{
		db:          db,
		gateway:     gateway,
		outbox:      outbox,
		now:         time.Now,
		orderCode:   func() int64 { return time.Now().UnixMilli() },
		apiURL:      strings.TrimRight(apiURL, "/"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// SetClock replaces the time source. Tests only.
func (s *BalanceService) SetClock(now func() time.Time) { s.now = now }

// SetOrderCodes replaces the order code generator. Tests only.
func (s *BalanceService) SetOrderCodes(next func() int64) { s.orderCode = next }

type BalanceInfo struct {
	Balance  int64  `json:"balance"`
	FullName string `json:"full_name"`
}

type RechargeResult struct {
	Recharge  *models.BalanceRecharge `json:"recharge"`
	ExpiresAt time.Time               `json:"expires_at"`
}

type RechargePage struct {
	Transactions []models.BalanceRecharge `json:"transactions"`
	Pagination   Pagination               `json:"pagination"`
}

// Recharge opens a checkout link for amount VND credited to userID once paid.
func (s *BalanceService) Recharge(ctx context.Context, userID uuid.UUID, amount int64) (*RechargeResult, error) {
	if amount <= 0 {
		return nil, apperr.Validation("Amount is required")
	}
	if amount < MinPaymentAmount {
		return nil, apperr.Validation(fmt.Sprintf("Amount must be at least %d", MinPaymentAmount))
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND is_deleted = ?", userID, false).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	recharge := &models.BalanceRecharge{
		UserID:      userID,
		Amount:      amount,
		Description: fmt.Sprintf("Wallet top-up %d VND - %s", amount, user.FullName),
		Status:      models.PaymentPending,
	}

	now := s.now()
	expiresAt := now.Add(PaymentLinkTTL)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := utils.GenerateUniqueOrderCode(tx, s.orderCode)
		if err != nil {
			return apperr.Internal("Failed to create recharge", err)
		}
		recharge.OrderCode = code
		if err := tx.Create(recharge).Error; err != nil {
			return apperr.Internal("Failed to create recharge", err)
		}

		link, err := s.gateway.CreatePaymentLink(ctx, payments.CreateLinkRequest{
			OrderCode:   code,
			Amount:      amount,
			Description: "Nap tien vi Telecare",
			ReturnURL:   s.apiURL + "/api/v1/payments/recharge/success",
			CancelURL:   s.apiURL + "/api/v1/payments/recharge/cancel",
			ExpiredAt:   expiresAt.Unix(),
		})
		if err != nil {
			return &apperr.Error{Kind: apperr.KindInternal, Message: "Payment gateway unavailable, try again in a few minutes", Err: err}
		}

		recharge.PaymentURL = &link.CheckoutURL
		return tx.Model(recharge).Update("payment_url", link.CheckoutURL).Error
	})
	if err != nil {
		return nil, err
	}
	return &RechargeResult{Recharge: recharge, ExpiresAt: expiresAt}, nil
}

// Owns reports whether orderCode belongs to a recharge rather than a package payment.
func (s *BalanceService) Owns(ctx context.Context, orderCode int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.BalanceRecharge{}).
		Where("order_code = ?", orderCode).Count(&n).Error; err != nil {
		return false, apperr.Internal("Failed to load recharge", err)
	}
	return n > 0, nil
}

// Settle applies a verified gateway outcome to a recharge.
func (s *BalanceService) Settle(ctx context.Context, orderCode int64, status, reference, reason string) (string, error) {
	if status == models.PaymentPaid {
		credited, err := s.Credit(ctx, orderCode, reference)
		if err != nil {
			return "", err
		}
		if !credited {
			return "Payment already processed", nil
		}
		logger.Log.Info().Int64("order_code", orderCode).Msg("✅ Balance recharge credited")
		return "Webhook processed successfully", nil
	}

	changed, err := s.closePending(ctx, orderCode, nil, status, reason)
	if err != nil {
		return "", err
	}
	if !changed {
		return "No pending payment found", nil
	}
	return "Webhook processed successfully", nil
}

// Credit marks a pending recharge paid and adds its amount to the wallet. A second call
// for the same order changes nothing.
func (s *BalanceService) Credit(ctx context.Context, orderCode int64, transactionID string) (bool, error) {
	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.BalanceRecharge
		if err := tx.First(&r, "order_code = ?", orderCode).Error; err != nil {
			return notFoundOr(err, "Order not found")
		}

		now := s.now()
		updates := map[string]any{"status": models.PaymentPaid, "paid_at": now}
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
		res := tx.Model(&models.BalanceRecharge{}).
			Where("id = ? AND status = ?", r.ID, models.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal("Failed to update recharge", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.User{}).Where("id = ?", r.UserID).
			UpdateColumn("balance", gorm.Expr("balance + ?", r.Amount)).Error; err != nil {
			return apperr.Internal("Failed to credit balance", err)
		}
		credited = true

		return s.outbox.Enqueue(tx, Notice{
			RecipientID: r.UserID,
			Type:        models.NotifyBalanceRecharged,
			Message:     fmt.Sprintf("Your wallet was topped up with %d VND.", r.Amount),
			Data:        map[string]any{"order_code": r.OrderCode, "amount": r.Amount},
			Push:        true,
			Realtime:    true,
		})
	})
	if err != nil {
		return false, err
	}
	if credited {
		s.outbox.Flush()
	}
	return credited, nil
}

func (s *BalanceService) closePending(ctx context.Context, orderCode int64, userID *uuid.UUID, status, reason string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.BalanceRecharge{}).
		Where("order_code = ? AND status = ?", orderCode, models.PaymentPending)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	res := q.Updates(closedPaymentUpdates(status, reason, s.now()))
	if res.Error != nil {
		return false, apperr.Internal("Failed to update recharge", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Status returns the caller's recharge, reconciling a pending one against the gateway.
func (s *BalanceService) Status(ctx context.Context, userID uuid.UUID, orderCode int64) (*models.BalanceRecharge, error) {
	r, err := s.find(ctx, orderCode, &userID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.PaymentPending {
		return r, nil
	}
	s.reconcile(ctx, r)
	return s.find(ctx, orderCode, &userID)
}

func (s *BalanceService) reconcile(ctx context.Context, r *models.BalanceRecharge) {
	info, err := s.gateway.GetPaymentLinkInfo(ctx, r.OrderCode)
	if err != nil {
		logger.Log.Warn().Err(err).Int64("order_code", r.OrderCode).Msg("⚠️ Gateway status check failed, using local status")
		return
	}
	switch info.Status {
	case models.PaymentPaid:
		ref := ""
		if len(info.Transactions) > 0 {
			ref = info.Transactions[0].Reference
		}
		if _, err := s.Credit(ctx, r.OrderCode, ref); err != nil {
			logger.Log.Error().Err(err).Int64("order_code", r.OrderCode).Msg("🔥 Failed to credit paid recharge")
		}
	case models.PaymentCancelled:
		_, _ = s.closePending(ctx, r.OrderCode, nil, models.PaymentCancelled, "Cancelled at the payment gateway")
	case models.PaymentExpired:
		_, _ = s.closePending(ctx, r.OrderCode, nil, models.PaymentExpired, "")
	}
}

func (s *BalanceService) Balance(ctx context.Context, userID uuid.UUID) (*BalanceInfo, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND is_deleted = ?", userID, false).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &BalanceInfo{Balance: user.Balance, FullName: user.FullName}, nil
}

// Transactions pages the caller's recharges, newest first. status is optional.
func (s *BalanceService) Transactions(ctx context.Context, userID uuid.UUID, status string, page, limit int) (*RechargePage, error) {
	page, limit = normalizePage(page, limit, 10, 50)

	q := s.db.WithContext(ctx).Model(&models.BalanceRecharge{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch transactions", err)
	}
	var out []models.BalanceRecharge
	if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch transactions", err)
	}
	return &RechargePage{Transactions: out, Pagination: NewPagination(total, page, limit)}, nil
}

// ReturnSucceeded handles the gateway's return redirect for a top-up.
func (s *BalanceService) ReturnSucceeded(ctx context.Context, orderCode int64) string {
	verified := false
	if orderCode != 0 {
		if r, err := s.find(ctx, orderCode, nil); err == nil {
			if r.Status == models.PaymentPending {
				s.reconcile(ctx, r)
				r, _ = s.find(ctx, orderCode, nil)
			}
			verified = r != nil && r.Status == models.PaymentPaid
		}
	}
	return fmt.Sprintf("%s/wallet/recharge/success?orderCode=%d&verified=%t", s.frontendURL, orderCode, verified)
}

// ReturnCancelled handles the gateway's cancel redirect for a top-up.
func (s *BalanceService) ReturnCancelled(ctx context.Context, orderCode int64) string {
	success := false
	if orderCode != 0 {
		changed, err := s.closePending(ctx, orderCode, nil, models.PaymentCancelled, "User cancelled on the payment gateway")
		if err != nil {
			logger.Log.Error().Err(err).Int64("order_code", orderCode).Msg("🔥 Recharge cancel redirect failed")
		}
		success = changed
	}
	return fmt.Sprintf("%s/wallet/recharge/cancelled?orderCode=%d&success=%t", s.frontendURL, orderCode, success)
}

// ExpireStale closes pending recharges whose checkout link is past its lifetime.
func (s *BalanceService) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.BalanceRecharge{}).
		Where("status = ? AND created_at < ?", models.PaymentPending, now.Add(-PaymentLinkTTL)).
		Updates(map[string]any{"status": models.PaymentExpired, "expired_at": now})
	return res.RowsAffected, res.Error
}

func (s *BalanceService) find(ctx context.Context, orderCode int64, userID *uuid.UUID) (*models.BalanceRecharge, error) {
	q := s.db.WithContext(ctx).Where("order_code = ?", orderCode)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var r models.BalanceRecharge
	if err := q.First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Internal("Failed to load recharge", err)
	}
	return &r, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/payments"
	"github.com/telecare/telehealth_api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentLinkTTL is how long a checkout link stays payable.
const PaymentLinkTTL = 15 * time.Minute

const packageCacheTTL = 5 * time.Minute

// SubscriptionService sells subscription packages through the payment gateway and
// activates them once paid.
type SubscriptionService struct {
	db          *gorm.DB
	gateway     payments.Gateway
	quota       *QuotaService
	outbox      *Outbox
	now         func() time.Time
	orderCode   func() int64
	apiURL      string
	frontendURL string
	recharges   *BalanceService
	started     time.Time

	cacheMu     sync.RWMutex
	cached      []PackageInfo
	cachedUntil time.Time
}

type PackageInfo struct {
	Type          string        `json:"type"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	ScheduleLimit int           `json:"schedule_limit"`
	IsPriority    bool          `json:"is_priority"`
	Level         int           `json:"level"`
	Prices        map[int]int64 `json:"prices"`
}

type UpgradeInfo struct {
	FromPackage    string     `json:"from_package"`
	ToPackage      string     `json:"to_package"`
	CurrentEndDate *time.Time `json:"current_end_date"`
	RemainingDays  int        `json:"remaining_days"`
}

type CreatePaymentResult struct {
	Payment     *models.PackagePayment `json:"payment"`
	ExpiresAt   time.Time              `json:"expires_at"`
	PackageInfo PackageBenefit         `json:"package_info"`
	UpgradeInfo *UpgradeInfo           `json:"upgrade_info"`
}

func NewSubscriptionService(db *gorm.DB, gateway payments.Gateway, quota *QuotaService, outbox *Outbox, apiURL, frontendURL string) *SubscriptionService {
	return &SubscriptionService{
		db:          db,
		gateway:     gateway,
		quota:       quota,
		outbox:      outbox,
		now:         time.Now,
		orderCode:   func() int64 { return time.Now().UnixMilli() },
		apiURL:      strings.TrimRight(apiURL, "/"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		started:     time.Now(),
	}
}

// SetRecharges routes webhooks for wallet top-ups to b. Both flows share one gateway
// webhook URL.
func (s *SubscriptionService) SetRecharges(b *BalanceService) { s.recharges = b }

// SetClock replaces the time source. Tests only.
func (s *SubscriptionService) SetClock(now func() time.Time) { s.now = now }

// SetOrderCodes replaces the order code generator. Tests only.
func (s *SubscriptionService) SetOrderCodes(next func() int64) { s.orderCode = next }

// Packages returns the catalog, rebuilt at most every few minutes.
func (s *SubscriptionService) Packages() []PackageInfo {
	s.cacheMu.RLock()
	if s.cached != nil && s.now().Before(s.cachedUntil) {
		out := s.cached
		s.cacheMu.RUnlock()
		return out
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cached != nil && s.now().Before(s.cachedUntil) {
		return s.cached
	}

	out := make([]PackageInfo, 0, len(PackageBenefits))
	for pkg, b := range PackageBenefits {
		out = append(out, PackageInfo{
			Type:          pkg,
			Name:          b.Name,
			Description:   b.Description,
			ScheduleLimit: b.ScheduleLimit,
			IsPriority:    b.IsPriority,
			Level:         PackageLevel(pkg),
			Prices:        PackagePrices[pkg],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })

	s.cached = out
	s.cachedUntil = s.now().Add(packageCacheTTL)
	return out
}

// CheckPurchase applies the subscription rules: no rebuying the active package, no
// downgrade while active, upgrades allowed immediately.
func CheckPurchase(d *models.Doctor, pkg string, now time.Time) (*UpgradeInfo, error) {
	if !d.HasActiveSubscription(now) {
		return nil, nil
	}
	remaining := remainingDays(*d.SubscriptionEndDate, now)
	current := d.SubscriptionPackage

	if current == pkg {
		return nil, apperr.Validation(fmt.Sprintf("Your %s package is still active for %d days. Wait for it to expire or choose another package.", PackageBenefits[pkg].Name, remaining)).
			With("current_subscription", map[string]any{"package": current, "end_date": d.SubscriptionEndDate, "remaining_days": remaining})
	}
	if PackageLevel(pkg) < PackageLevel(current) {
		return nil, apperr.Validation(fmt.Sprintf("Cannot downgrade from %s to %s while %d days remain.", PackageBenefits[current].Name, PackageBenefits[pkg].Name, remaining)).
			With("current_subscription", map[string]any{"package": current, "end_date": d.SubscriptionEndDate, "remaining_days": remaining})
	}
	return &UpgradeInfo{
		FromPackage:    current,
		ToPackage:      pkg,
		CurrentEndDate: d.SubscriptionEndDate,
		RemainingDays:  remaining,
	}, nil
}

func remainingDays(end, now time.Time) int {
	d := end.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func (s *SubscriptionService) CreatePayment(ctx context.Context, doctorID uuid.UUID, pkg string, months int) (*CreatePaymentResult, error) {
	if pkg == "" || months == 0 {
		return nil, apperr.Validation("Package and duration are required")
	}
	if !PurchasablePackage(pkg) {
		return nil, apperr.Validation("Invalid package. Choose: silver, gold, diamond")
	}
	if !ValidDuration(months) {
		return nil, apperr.Validation("Invalid duration. Choose: 1, 3, 6, 12 months")
	}

	var doctor models.Doctor
	if err := s.db.WithContext(ctx).Preload("User").First(&doctor, "user_id = ?", doctorID).Error; err != nil {
		return nil, notFoundOr(err, "Doctor not found")
	}
	if doctor.ApplicationStatus != models.ApplicationAccepted {
		return nil, apperr.Authorization("Only approved doctors can buy a package")
	}

	now := s.now()
	upgrade, err := CheckPurchase(&doctor, pkg, now)
	if err != nil {
		return nil, err
	}

	amount, ok := PackagePrice(pkg, months)
	if !ok {
		return nil, apperr.Validation("No price found for this package")
	}
	if amount < MinPaymentAmount {
		return nil, apperr.Validation(fmt.Sprintf("Amount must be at least %d", MinPaymentAmount))
	}

	payment := &models.PackagePayment{
		DoctorID:        doctorID,
		Amount:          amount,
		Description:     fmt.Sprintf("%s package - %d months - Dr. %s", PackageBenefits[pkg].Name, months, doctor.User.FullName),
		PackageType:     pkg,
		PackageDuration: months,
		Status:          models.PaymentPending,
	}

	expiresAt := now.Add(PaymentLinkTTL)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := utils.GenerateUniqueOrderCode(tx, s.orderCode)
		if err != nil {
			return apperr.Internal("Failed to create payment", err)
		}
		payment.OrderCode = code
		if err := tx.Create(payment).Error; err != nil {
			return apperr.Internal("Failed to create payment", err)
		}

		link, err := s.gateway.CreatePaymentLink(ctx, payments.CreateLinkRequest{
			OrderCode:   payment.OrderCode,
			Amount:      amount,
			Description: shortDescription(pkg, months),
			ReturnURL:   s.apiURL + "/api/v1/payments/package/success",
			CancelURL:   s.apiURL + "/api/v1/payments/package/cancel",
			ExpiredAt:   expiresAt.Unix(),
		})
		if err != nil {
			return &apperr.Error{Kind: apperr.KindInternal, Message: "Payment gateway unavailable, try again in a few minutes", Err: err}
		}

		payment.PaymentURL = &link.CheckoutURL
		return tx.Model(payment).Update("payment_url", link.CheckoutURL).Error
	})
	if err != nil {
		return nil, err
	}

	return &CreatePaymentResult{
		Payment:     payment,
		ExpiresAt:   expiresAt,
		PackageInfo: PackageBenefits[pkg],
		UpgradeInfo: upgrade,
	}, nil
}

// Activate marks a pending payment paid and installs the package. Calling it twice for
// the same order is a no-op the second time.
func (s *SubscriptionService) Activate(ctx context.Context, orderCode int64, transactionID string) (bool, error) {
	activated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.PackagePayment
		if err := tx.First(&payment, "order_code = ?", orderCode).Error; err != nil {
			return notFoundOr(err, "Order not found")
		}

		now := s.now()
		updates := map[string]any{"status": models.PaymentPaid, "paid_at": now}
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
		res := tx.Model(&models.PackagePayment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal("Failed to update payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := s.applySubscription(tx, &payment, now); err != nil {
			return err
		}
		activated = true

		return s.outbox.Enqueue(tx, Notice{
			RecipientID: payment.DoctorID,
			Type:        models.NotifyPaymentSuccess,
			Message:     fmt.Sprintf("Payment received. Your %s package is now active.", PackageBenefits[payment.PackageType].Name),
			Data: map[string]any{
				"order_code":   payment.OrderCode,
				"package_type": payment.PackageType,
				"amount":       payment.Amount,
			},
			Push:     true,
			Realtime: true,
		})
	})
	if err != nil {
		return false, err
	}
	if activated {
		s.outbox.Flush()
	}
	return activated, nil
}

func (s *SubscriptionService) applySubscription(tx *gorm.DB, p *models.PackagePayment, now time.Time) error {
	var doctor models.Doctor
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doctor, "user_id = ?", p.DoctorID).Error; err != nil {
		return notFoundOr(err, "Doctor not found")
	}

	start, end := SubscriptionPeriod(&doctor, p.PackageType, p.PackageDuration, now)
	if err := tx.Model(&models.Doctor{}).
		Where("user_id = ?", doctor.UserID).
		Updates(map[string]any{
			"subscription_package":    p.PackageType,
			"subscription_start_date": start,
			"subscription_end_date":   end,
		}).Error; err != nil {
		return apperr.Internal("Failed to update subscription", err)
	}
	return s.quota.ApplyPackage(tx, doctor.UserID, p.PackageType)
}

// SubscriptionPeriod returns the validity window of a newly paid package. Upgrades start
// now; renewals continue from the current end date.
func SubscriptionPeriod(d *models.Doctor, pkg string, months int, now time.Time) (time.Time, time.Time) {
	active := d.HasActiveSubscription(now)
	start := now
	if active && d.SubscriptionPackage == pkg {
		start = *d.SubscriptionEndDate
	}
	return start, start.AddDate(0, months, 0)
}

// WebhookStatus maps a gateway result code and description to a payment status.
func WebhookStatus(code, desc string) string {
	lower := strings.ToLower(desc)
	switch {
	case code == "00":
		return models.PaymentPaid
	case code == "02" || code == "10" || strings.Contains(lower, "cancel"):
		return models.PaymentCancelled
	case code == "03" || strings.Contains(lower, "expire"):
		return models.PaymentExpired
	default:
		return models.PaymentFailed
	}
}

// HandleWebhook applies a verified gateway callback and returns a short outcome message.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, w *payments.Webhook) (string, error) {
	if err := s.gateway.VerifyWebhook(w); err != nil {
		return "", apperr.Authorization("Invalid webhook signature")
	}
	orderCode, ok := w.OrderCode()
	if !ok {
		return "", apperr.Validation("Missing order code")
	}

	status := WebhookStatus(w.Code, w.Desc)
	ref := w.DataString("reference")
	if ref == "" {
		ref = w.DataString("transactionDateTime")
	}
	reason := w.Desc
	if reason == "" {
		reason = "Unknown failure reason"
	}

	if s.recharges != nil {
		owned, err := s.recharges.Owns(ctx, orderCode)
		if err != nil {
			return "", err
		}
		if owned {
			return s.recharges.Settle(ctx, orderCode, status, ref, reason)
		}
	}

	if status == models.PaymentPaid {
		activated, err := s.Activate(ctx, orderCode, ref)
		if err != nil {
			return "", err
		}
		if !activated {
			return "Payment already processed", nil
		}
		logger.Log.Info().Int64("order_code", orderCode).Msg("✅ Package payment activated")
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

// closePending moves a PENDING payment to a closed status. doctorID narrows the match
// when set.
func (s *SubscriptionService) closePending(ctx context.Context, orderCode int64, doctorID *uuid.UUID, status, reason string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.PackagePayment{}).
		Where("order_code = ? AND status = ?", orderCode, models.PaymentPending)
	if doctorID != nil {
		q = q.Where("doctor_id = ?", *doctorID)
	}
	res := q.Updates(closedPaymentUpdates(status, reason, s.now()))
	if res.Error != nil {
		return false, apperr.Internal("Failed to update payment", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// closedPaymentUpdates stamps the column matching a terminal, unpaid status.
func closedPaymentUpdates(status, reason string, now time.Time) map[string]any {
	updates := map[string]any{"status": status}
	switch status {
	case models.PaymentCancelled:
		updates["cancelled_at"] = now
		updates["cancel_reason"] = reason
	case models.PaymentExpired:
		updates["expired_at"] = now
	default:
		updates["failed_at"] = now
		updates["failure_reason"] = reason
	}
	return updates
}

// CheckStatus returns the payment, reconciling a pending one against the gateway first.
func (s *SubscriptionService) CheckStatus(ctx context.Context, doctorID uuid.UUID, orderCode int64) (*models.PackagePayment, error) {
	payment, err := s.find(ctx, orderCode, &doctorID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentPending {
		s.reconcile(ctx, payment)
		if payment, err = s.find(ctx, orderCode, &doctorID); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *SubscriptionService) reconcile(ctx context.Context, p *models.PackagePayment) {
	info, err := s.gateway.GetPaymentLinkInfo(ctx, p.OrderCode)
	if err != nil {
		logger.Log.Warn().Err(err).Int64("order_code", p.OrderCode).Msg("⚠️ Gateway status check failed, using local status")
		return
	}

	switch info.Status {
	case models.PaymentPaid:
		ref := ""
		if len(info.Transactions) > 0 {
			ref = info.Transactions[0].Reference
		}
		if _, err := s.Activate(ctx, p.OrderCode, ref); err != nil {
			logger.Log.Error().Err(err).Int64("order_code", p.OrderCode).Msg("🔥 Failed to activate paid package")
		}
	case models.PaymentCancelled:
		reason := "Cancelled at the payment gateway"
		if info.CancellationReason != nil && *info.CancellationReason != "" {
			reason = *info.CancellationReason
		}
		_, _ = s.closePending(ctx, p.OrderCode, nil, models.PaymentCancelled, reason)
	case models.PaymentExpired:
		_, _ = s.closePending(ctx, p.OrderCode, nil, models.PaymentExpired, "")
	}
}

func (s *SubscriptionService) Cancel(ctx context.Context, doctorID uuid.UUID, orderCode int64) (*models.PackagePayment, error) {
	payment, err := s.find(ctx, orderCode, &doctorID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPending {
		return nil, apperr.NotFound("Order not found or cannot be cancelled")
	}

	reason := "Cancelled by doctor via API"
	if err := s.gateway.CancelPaymentLink(ctx, orderCode, reason); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "cancel") {
			return nil, apperr.Validation("Could not cancel the payment at the gateway").With("detail", err.Error())
		}
		reason = "Already cancelled at the payment gateway"
	}

	if _, err := s.closePending(ctx, orderCode, &doctorID, models.PaymentCancelled, reason); err != nil {
		return nil, err
	}
	return s.find(ctx, orderCode, &doctorID)
}

// ReturnCancelled handles the gateway's cancel redirect and returns the frontend URL to
// send the browser to.
func (s *SubscriptionService) ReturnCancelled(ctx context.Context, orderCode int64) string {
	success := false
	if orderCode != 0 {
		changed, err := s.closePending(ctx, orderCode, nil, models.PaymentCancelled, "User cancelled on the payment gateway")
		if err != nil {
			logger.Log.Error().Err(err).Int64("order_code", orderCode).Msg("🔥 Cancel redirect failed")
		}
		success = changed
	}
	return fmt.Sprintf("%s/doctor/payment/cancelled?orderCode=%d&success=%t", s.frontendURL, orderCode, success)
}

// ReturnSucceeded handles the gateway's return redirect.
func (s *SubscriptionService) ReturnSucceeded(ctx context.Context, orderCode int64) string {
	verified := false
	if orderCode != 0 {
		if p, err := s.find(ctx, orderCode, nil); err == nil {
			if p.Status == models.PaymentPending {
				s.reconcile(ctx, p)
				p, err = s.find(ctx, orderCode, nil)
				if err != nil {
					logger.Log.Error().Err(err).Int64("order_code", orderCode).Msg("🔥 Success redirect reload failed")
				}
			}
			verified = p != nil && p.Status == models.PaymentPaid
		}
	}
	return fmt.Sprintf("%s/doctor/payment/success?orderCode=%d&verified=%t", s.frontendURL, orderCode, verified)
}

type PaymentQuery struct {
	DoctorID    *uuid.UUID
	Status      string
	PackageType string
	Page        int
	Limit       int
}

type PaymentPage struct {
	Payments   []models.PackagePayment `json:"payments"`
	Pagination Pagination              `json:"pagination"`
}

func (s *SubscriptionService) History(ctx context.Context, q PaymentQuery) (*PaymentPage, error) {
	page, limit := normalizePage(q.Page, q.Limit, 10, 50)

	db := s.db.WithContext(ctx).Model(&models.PackagePayment{})
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", strings.ToUpper(q.Status))
	}
	if q.PackageType != "" {
		db = db.Where("package_type = ?", q.PackageType)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch payments", err)
	}
	var out []models.PackagePayment
	if err := db.Preload("Doctor").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch payments", err)
	}
	return &PaymentPage{Payments: out, Pagination: NewPagination(total, page, limit)}, nil
}

// ExpireStale closes pending payments whose checkout link is past its lifetime.
func (s *SubscriptionService) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.PackagePayment{}).
		Where("status = ? AND created_at < ?", models.PaymentPending, now.Add(-PaymentLinkTTL)).
		Updates(map[string]any{"status": models.PaymentExpired, "expired_at": now})
	return res.RowsAffected, res.Error
}

// LapseSubscriptions returns doctors whose paid package ended to the free plan.
func (s *SubscriptionService) LapseSubscriptions(ctx context.Context) (int, error) {
	now := s.now()
	var doctors []models.Doctor
	if err := s.db.WithContext(ctx).
		Where("subscription_package <> ? AND subscription_end_date IS NOT NULL AND subscription_end_date <= ?", models.PackageFree, now).
		Find(&doctors).Error; err != nil {
		return 0, err
	}

	lapsed := 0
	for _, d := range doctors {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Doctor{}).
				Where("user_id = ? AND subscription_package <> ?", d.UserID, models.PackageFree).
				Update("subscription_package", models.PackageFree).Error; err != nil {
				return err
			}
			return s.quota.Downgrade(tx, d.UserID)
		})
		if err != nil {
			logger.Log.Error().Err(err).Str("doctor_id", d.UserID.String()).Msg("🔥 Failed to lapse subscription")
			continue
		}
		lapsed++
	}
	return lapsed, nil
}

func (s *SubscriptionService) find(ctx context.Context, orderCode int64, doctorID *uuid.UUID) (*models.PackagePayment, error) {
	q := s.db.WithContext(ctx).Where("order_code = ?", orderCode)
	if doctorID != nil {
		q = q.Where("doctor_id = ?", *doctorID)
	}
	var p models.PackagePayment
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Internal("Failed to load payment", err)
	}
	return &p, nil
}

package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/payments"
)

type fakeGateway struct {
	links     []payments.CreateLinkRequest
	info      *payments.PaymentLinkInfo
	cancelErr error
	verifyErr error
}

func (g *fakeGateway) CreatePaymentLink(_ context.Context, req payments.CreateLinkRequest) (*payments.PaymentLink, error) {
	g.links = append(g.links, req)
	return &payments.PaymentLink{CheckoutURL: "https://pay.example.com/" + uuid.NewString(), Status: "PENDING"}, nil
}

func (g *fakeGateway) GetPaymentLinkInfo(_ context.Context, orderCode int64) (*payments.PaymentLinkInfo, error) {
	if g.info == nil {
		return nil, errors.New("gateway unavailable")
	}
	return g.info, nil
}

func (g *fakeGateway) CancelPaymentLink(context.Context, int64, string) error {
	return g.cancelErr
}

func (g *fakeGateway) VerifyWebhook(*payments.Webhook) error {
	return g.verifyErr
}

type subscriptionFixture struct {
	*scheduleFixture
	gateway *fakeGateway
	subs    *SubscriptionService
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	f := newScheduleFixture(t, 5)
	gw := &fakeGateway{}
	subs := NewSubscriptionService(f.db, gw, f.svc.Quota(), NewOutbox(f.waker), "https://api.example.com/", "https://app.example.com")
	subs.SetClock(fixedClock)
	next := int64(1760000000000)
	subs.SetOrderCodes(func() int64 { next++; return next })
	return &subscriptionFixture{scheduleFixture: f, gateway: gw, subs: subs}
}

func TestCheckPurchase(t *testing.T) {
	end := testNow.Add(10 * 24 * time.Hour)
	past := testNow.Add(-time.Hour)

	cases := []struct {
		name    string
		current string
		end     *time.Time
		buy     string
		wantErr bool
		upgrade bool
	}{
		{name: "free doctor buys silver", current: models.PackageFree, buy: models.PackageSilver},
		{name: "expired gold rebuys gold", current: models.PackageGold, end: &past, buy: models.PackageGold},
		{name: "active silver upgrades to gold", current: models.PackageSilver, end: &end, buy: models.PackageGold, upgrade: true},
		{name: "active gold rebuys gold", current: models.PackageGold, end: &end, buy: models.PackageGold, wantErr: true},
		{name: "active diamond downgrades", current: models.PackageDiamond, end: &end, buy: models.PackageSilver, wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := &models.Doctor{SubscriptionPackage: c.current, SubscriptionEndDate: c.end}
			info, err := CheckPurchase(d, c.buy, testNow)
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if c.wantErr {
				if apperr.KindOf(err) != apperr.KindValidation {
					t.Fatalf("kind = %s, want validation", apperr.KindOf(err))
				}
				return
			}
			if (info != nil) != c.upgrade {
				t.Fatalf("upgrade info = %+v, want upgrade %v", info, c.upgrade)
			}
			if c.upgrade && info.RemainingDays != 10 {
				t.Fatalf("remaining days = %d, want 10", info.RemainingDays)
			}
		})
	}
}

func TestSubscriptionPeriod(t *testing.T) {
	end := testNow.Add(5 * 24 * time.Hour)

	renew := &models.Doctor{SubscriptionPackage: models.PackageGold, SubscriptionEndDate: &end}
	start, stop := SubscriptionPeriod(renew, models.PackageGold, 1, testNow)
	if !start.Equal(end) || !stop.Equal(end.AddDate(0, 1, 0)) {
		t.Fatalf("renewal = %s..%s, want to continue from %s", start, stop, end)
	}

	start, stop = SubscriptionPeriod(renew, models.PackageDiamond, 3, testNow)
	if !start.Equal(testNow) || !stop.Equal(testNow.AddDate(0, 3, 0)) {
		t.Fatalf("upgrade = %s..%s, want to start now", start, stop)
	}

	fresh := &models.Doctor{SubscriptionPackage: models.PackageFree}
	start, _ = SubscriptionPeriod(fresh, models.PackageSilver, 1, testNow)
	if !start.Equal(testNow) {
		t.Fatalf("first purchase starts %s, want now", start)
	}
}

func TestWebhookStatus(t *testing.T) {
	cases := []struct {
		code, desc, want string
	}{
		{"00", "success", models.PaymentPaid},
		{"02", "", models.PaymentCancelled},
		{"10", "", models.PaymentCancelled},
		{"99", "User Cancelled", models.PaymentCancelled},
		{"03", "", models.PaymentExpired},
		{"98", "link expired", models.PaymentExpired},
		{"01", "insufficient funds", models.PaymentFailed},
	}
	for _, c := range cases {
		if got := WebhookStatus(c.code, c.desc); got != c.want {
			t.Errorf("WebhookStatus(%q, %q) = %s, want %s", c.code, c.desc, got, c.want)
		}
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		pkg    string
		months int
		kind   apperr.Kind
	}{
		{"missing package", "", 1, apperr.KindValidation},
		{"free package", models.PackageFree, 1, apperr.KindValidation},
		{"odd duration", models.PackageGold, 2, apperr.KindValidation},
		{"unpriced duration", models.PackageGold, 12, apperr.KindValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.subs.CreatePayment(ctx, f.doctor.ID, c.pkg, c.months)
			expectKind(t, err, c.kind)
		})
	}

	_, err := f.subs.CreatePayment(ctx, uuid.New(), models.PackageGold, 1)
	expectKind(t, err, apperr.KindNotFound)

	if len(f.gateway.links) != 0 {
		t.Fatalf("gateway called %d times for invalid requests", len(f.gateway.links))
	}
}

func TestPaidWebhookActivatesPackageOnce(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageDiamond, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if res.Payment.Status != models.PaymentPending || res.Payment.PaymentURL == nil {
		t.Fatalf("payment = %+v", res.Payment)
	}
	if len(f.gateway.links) != 1 || f.gateway.links[0].Amount != 10000 {
		t.Fatalf("gateway requests = %+v", f.gateway.links)
	}
	if got := f.gateway.links[0].ReturnURL; got != "https://api.example.com/api/v1/payments/package/success" {
		t.Fatalf("return url = %q", got)
	}

	hook := &payments.Webhook{
		Code: "00",
		Desc: "success",
		Data: map[string]any{"orderCode": float64(res.Payment.OrderCode), "reference": "FT001"},
	}
	msg, err := f.subs.HandleWebhook(ctx, hook)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if msg != "Webhook processed successfully" {
		t.Fatalf("message = %q", msg)
	}

	doctor := loadDoctor(t, f.db, f.doctor.ID)
	if doctor.SubscriptionPackage != models.PackageDiamond || !doctor.IsPriority {
		t.Fatalf("doctor package = %s priority = %v", doctor.SubscriptionPackage, doctor.IsPriority)
	}
	if doctor.ScheduleLimits.Weekly != 100 || doctor.ScheduleLimits.Used != 0 {
		t.Fatalf("limits = %+v", doctor.ScheduleLimits)
	}
	if doctor.SubscriptionEndDate == nil || !doctor.SubscriptionEndDate.Equal(testNow.AddDate(0, 1, 0)) {
		t.Fatalf("end date = %v", doctor.SubscriptionEndDate)
	}

	msg, err = f.subs.HandleWebhook(ctx, hook)
	if err != nil {
		t.Fatalf("replayed webhook: %v", err)
	}
	if msg != "Payment already processed" {
		t.Fatalf("replay message = %q", msg)
	}

	var paid int64
	f.db.Model(&models.Notification{}).Where("type = ?", models.NotifyPaymentSuccess).Count(&paid)
	if paid != 1 {
		t.Fatalf("payment notifications = %d, want 1", paid)
	}

	_, err = f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageSilver, 1)
	expectKind(t, err, apperr.KindValidation)
}

func TestWebhookRejectsBadSignatureAndClosesFailures(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageSilver, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	code := float64(res.Payment.OrderCode)

	f.gateway.verifyErr = payments.ErrInvalidSignature
	_, err = f.subs.HandleWebhook(ctx, &payments.Webhook{Code: "00", Data: map[string]any{"orderCode": code}})
	expectKind(t, err, apperr.KindAuthorization)
	f.gateway.verifyErr = nil

	msg, err := f.subs.HandleWebhook(ctx, &payments.Webhook{Code: "02", Desc: "cancelled", Data: map[string]any{"orderCode": code}})
	if err != nil || msg != "Webhook processed successfully" {
		t.Fatalf("cancel webhook: %q %v", msg, err)
	}

	var p models.PackagePayment
	f.db.First(&p, "order_code = ?", res.Payment.OrderCode)
	if p.Status != models.PaymentCancelled || p.CancelledAt == nil {
		t.Fatalf("payment after cancel webhook = %s", p.Status)
	}

	msg, err = f.subs.HandleWebhook(ctx, &payments.Webhook{Code: "00", Data: map[string]any{"orderCode": code}})
	if err != nil || msg != "Payment already processed" {
		t.Fatalf("paid webhook after cancel: %q %v", msg, err)
	}
	if pkg := loadDoctor(t, f.db, f.doctor.ID).SubscriptionPackage; pkg != models.PackageFree {
		t.Fatalf("cancelled payment activated %s", pkg)
	}

	_, err = f.subs.HandleWebhook(ctx, &payments.Webhook{Code: "00", Data: map[string]any{}})
	expectKind(t, err, apperr.KindValidation)
}

func TestCheckStatusReconcilesWithGateway(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageGold, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	p, err := f.subs.CheckStatus(ctx, f.doctor.ID, res.Payment.OrderCode)
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if p.Status != models.PaymentPending {
		t.Fatalf("status without gateway = %s", p.Status)
	}

	f.gateway.info = &payments.PaymentLinkInfo{
		Status:       models.PaymentPaid,
		Transactions: []payments.Transaction{{Reference: "FT777"}},
	}
	p, err = f.subs.CheckStatus(ctx, f.doctor.ID, res.Payment.OrderCode)
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if p.Status != models.PaymentPaid || p.TransactionID == nil || *p.TransactionID != "FT777" {
		t.Fatalf("reconciled payment = %s %v", p.Status, p.TransactionID)
	}

	_, err = f.subs.CheckStatus(ctx, uuid.New(), res.Payment.OrderCode)
	expectKind(t, err, apperr.KindNotFound)
}

func TestCancelPayment(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageGold, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	f.gateway.cancelErr = errors.New("PayOS error 101: Payment link already cancelled")
	p, err := f.subs.Cancel(ctx, f.doctor.ID, res.Payment.OrderCode)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p.Status != models.PaymentCancelled {
		t.Fatalf("status = %s", p.Status)
	}

	_, err = f.subs.Cancel(ctx, f.doctor.ID, res.Payment.OrderCode)
	expectKind(t, err, apperr.KindNotFound)
}

func TestReturnRedirects(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageSilver, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	code := res.Payment.OrderCode

	url := f.subs.ReturnSucceeded(ctx, code)
	if want := "https://app.example.com/doctor/payment/success?orderCode=" + strconv.FormatInt(code, 10) + "&verified=false"; url != want {
		t.Fatalf("success redirect = %q, want %q", url, want)
	}

	url = f.subs.ReturnCancelled(ctx, code)
	if want := "https://app.example.com/doctor/payment/cancelled?orderCode=" + strconv.FormatInt(code, 10) + "&success=true"; url != want {
		t.Fatalf("cancel redirect = %q, want %q", url, want)
	}
}

func TestExpireAndLapse(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	res, err := f.subs.CreatePayment(ctx, f.doctor.ID, models.PackageSilver, 1)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if err := f.db.Model(&models.PackagePayment{}).Where("id = ?", res.Payment.ID).
		Update("created_at", testNow.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age payment: %v", err)
	}

	expired, err := f.subs.ExpireStale(ctx)
	if err != nil || expired != 1 {
		t.Fatalf("expired = %d, %v", expired, err)
	}

	ended := testNow.Add(-time.Minute)
	if err := f.db.Model(&models.Doctor{}).Where("user_id = ?", f.doctor.ID).Updates(map[string]any{
		"subscription_package":   models.PackageGold,
		"subscription_end_date":  ended,
		"schedule_limits_weekly": 20,
		"is_priority":            true,
	}).Error; err != nil {
		t.Fatalf("stage ended subscription: %v", err)
	}

	lapsed, err := f.subs.LapseSubscriptions(ctx)
	if err != nil || lapsed != 1 {
		t.Fatalf("lapsed = %d, %v", lapsed, err)
	}
	doctor := loadDoctor(t, f.db, f.doctor.ID)
	if doctor.SubscriptionPackage != models.PackageFree || doctor.ScheduleLimits.Weekly != 5 || doctor.IsPriority {
		t.Fatalf("after lapse: %s weekly=%d priority=%v", doctor.SubscriptionPackage, doctor.ScheduleLimits.Weekly, doctor.IsPriority)
	}
}

func TestPackagesSortedByLevel(t *testing.T) {
	f := newSubscriptionFixture(t)
	pkgs := f.subs.Packages()
	if len(pkgs) != len(PackageBenefits) {
		t.Fatalf("packages = %d", len(pkgs))
	}
	for i := 1; i < len(pkgs); i++ {
		if pkgs[i-1].Level > pkgs[i].Level {
			t.Fatalf("packages not sorted: %s before %s", pkgs[i-1].Type, pkgs[i].Type)
		}
	}
	if pkgs[0].Type != models.PackageFree {
		t.Fatalf("first package = %s", pkgs[0].Type)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/payments"
)

func TestDailyTotals(t *testing.T) {
	hcm := time.FixedZone("ICT", 7*3600)
	at := func(d, h int) time.Time { return time.Date(2026, 10, d, h, 0, 0, 0, time.UTC) }

	paid := []models.PackagePayment{
		{Amount: 1000, CreatedAt: at(12, 9)},
		{Amount: 2000, CreatedAt: at(12, 18)}, // 01:00 on the 13th in ICT
		{Amount: 4000, CreatedAt: at(13, 3)},
		{Amount: 8000, CreatedAt: at(15, 3)},
	}

	cases := []struct {
		name string
		loc  *time.Location
		want []DailyTotal
	}{
		{name: "utc", loc: time.UTC, want: []DailyTotal{
			{Date: "2026-10-12", Count: 2, Amount: 3000},
			{Date: "2026-10-13", Count: 1, Amount: 4000},
			{Date: "2026-10-15", Count: 1, Amount: 8000},
		}},
		{name: "local day boundary", loc: hcm, want: []DailyTotal{
			{Date: "2026-10-12", Count: 1, Amount: 1000},
			{Date: "2026-10-13", Count: 2, Amount: 6000},
			{Date: "2026-10-15", Count: 1, Amount: 8000},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dailyTotals(paid, tc.loc)
			if len(got) != len(tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("day %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}

	if got := dailyTotals(nil, time.UTC); got == nil || len(got) != 0 {
		t.Fatalf("empty input = %#v, want empty slice", got)
	}
}

func TestStatisticsSummarisesDoctorPayments(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	stage := func(code int64, status string, amount int64, created time.Time) {
		t.Helper()
		p := models.PackagePayment{
			DoctorID:        f.doctor.ID,
			OrderCode:       code,
			Amount:          amount,
			PackageType:     models.PackageSilver,
			PackageDuration: 1,
			Status:          status,
		}
		if err := f.db.Create(&p).Error; err != nil {
			t.Fatalf("stage payment: %v", err)
		}
		if err := f.db.Model(&p).Update("created_at", created).Error; err != nil {
			t.Fatalf("date payment: %v", err)
		}
	}
	stage(1, models.PaymentPaid, 5000, testNow.Add(-48*time.Hour))
	stage(2, models.PaymentPaid, 10000, testNow.Add(-47*time.Hour))
	stage(3, models.PaymentCancelled, 5000, testNow.Add(-time.Hour))
	stage(4, models.PaymentExpired, 5000, testNow.Add(-40*24*time.Hour))

	other := seedDoctor(t, f.db, "Barbara Liskov", 5)
	if err := f.db.Create(&models.PackagePayment{
		DoctorID: other.ID, OrderCode: 5, Amount: 99000, PackageType: models.PackageGold, PackageDuration: 1, Status: models.PaymentPaid,
	}).Error; err != nil {
		t.Fatalf("stage other payment: %v", err)
	}

	stats, err := f.subs.Statistics(ctx, f.doctor.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	o := stats.Overview
	if o.TotalPayments != 4 || o.SuccessfulPayments != 2 || o.TotalRevenue != 15000 {
		t.Fatalf("overview = %+v", o)
	}
	if o.SuccessRate != 50 || o.ConversionRate != 50 {
		t.Fatalf("rates = %v / %v", o.SuccessRate, o.ConversionRate)
	}
	if len(stats.ByStatus) != 3 {
		t.Fatalf("by status = %+v", stats.ByStatus)
	}
	if len(stats.RecentPayments) != 4 || stats.RecentPayments[0].OrderCode != 3 {
		t.Fatalf("recent = %d, first %d", len(stats.RecentPayments), stats.RecentPayments[0].OrderCode)
	}
	// the 40 day old payment is outside the trend window
	want := []DailyTotal{
		{Date: "2026-10-12", Count: 2, Amount: 15000},
		{Date: "2026-10-14", Count: 1, Amount: 5000},
	}
	if len(stats.DailyTrend) != len(want) || stats.DailyTrend[0] != want[0] || stats.DailyTrend[1] != want[1] {
		t.Fatalf("trend = %+v", stats.DailyTrend)
	}
	if !stats.Period.To.Equal(testNow) || !stats.Period.From.Equal(testNow.Add(-statsWindow)) {
		t.Fatalf("period = %+v", stats.Period)
	}

	empty, err := f.subs.Statistics(ctx, f.patient.ID)
	if err != nil {
		t.Fatalf("statistics without payments: %v", err)
	}
	if empty.Overview.TotalPayments != 0 || empty.Overview.SuccessRate != 0 || len(empty.DailyTrend) != 0 {
		t.Fatalf("empty statistics = %+v", empty.Overview)
	}
}

func TestHealthReport(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	report := f.subs.Health(ctx, "1.2.3")
	if !report.Healthy() || report.Version != "1.2.3" {
		t.Fatalf("report = %+v", report)
	}
	for name, ok := range report.Services {
		if !ok {
			t.Fatalf("%s check failed", name)
		}
	}

	unconfigured := NewSubscriptionService(f.db, payments.NewPayOSClient("http://127.0.0.1:1", "", "", ""),
		f.svc.Quota(), NewOutbox(f.waker), "https://api.example.com", "https://app.example.com")
	report = unconfigured.Health(ctx, "1.2.3")
	if report.Healthy() || report.Status != "degraded" {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if report.Services["payos"] || !report.Services["database"] {
		t.Fatalf("services = %v", report.Services)
	}
}

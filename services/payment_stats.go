package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
)

// statsWindow is how far back the daily trend reaches.
const statsWindow = 30 * 24 * time.Hour

type StatusTotal struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	TotalAmount int64  `json:"total_amount"`
}

type DailyTotal struct {
	Date   string `json:"date"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

type PaymentOverview struct {
	TotalPayments      int64   `json:"total_payments"`
	SuccessfulPayments int64   `json:"successful_payments"`
	TotalRevenue       int64   `json:"total_revenue"`
	SuccessRate        float64 `json:"success_rate"`
	ConversionRate     float64 `json:"conversion_rate"`
}

type StatsPeriod struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type PaymentStatistics struct {
	Overview       PaymentOverview         `json:"overview"`
	ByStatus       []StatusTotal           `json:"by_status"`
	RecentPayments []models.PackagePayment `json:"recent_payments"`
	DailyTrend     []DailyTotal            `json:"daily_trend"`
	Period         StatsPeriod             `json:"period"`
}

// Statistics summarises one doctor's package payments.
func (s *SubscriptionService) Statistics(ctx context.Context, doctorID uuid.UUID) (*PaymentStatistics, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	from := now.Add(-statsWindow)

	out := &PaymentStatistics{Period: StatsPeriod{From: from, To: now}}
	if err := db.Model(&models.PackagePayment{}).
		Select("status, count(*) as count, COALESCE(SUM(amount), 0) as total_amount").
		Where("doctor_id = ?", doctorID).
		Group("status").
		Order("status").
		Scan(&out.ByStatus).Error; err != nil {
		return nil, apperr.Internal("Failed to compute payment statistics", err)
	}

	for _, st := range out.ByStatus {
		out.Overview.TotalPayments += st.Count
		if st.Status == models.PaymentPaid {
			out.Overview.SuccessfulPayments = st.Count
			out.Overview.TotalRevenue = st.TotalAmount
		}
	}
	if out.Overview.TotalPayments > 0 {
		rate := float64(out.Overview.SuccessfulPayments) / float64(out.Overview.TotalPayments) * 100
		out.Overview.SuccessRate = math.Round(rate*100) / 100
		out.Overview.ConversionRate = out.Overview.SuccessRate
	}

	if err := db.Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Limit(5).
		Find(&out.RecentPayments).Error; err != nil {
		return nil, apperr.Internal("Failed to compute payment statistics", err)
	}

	var window []models.PackagePayment
	if err := db.Select("amount", "created_at").
		Where("doctor_id = ? AND created_at >= ?", doctorID, from).
		Order("created_at").
		Find(&window).Error; err != nil {
		return nil, apperr.Internal("Failed to compute payment statistics", err)
	}
	out.DailyTrend = dailyTotals(window, now.Location())
	return out, nil
}

// dailyTotals buckets payments by calendar day in loc. payments must be sorted by
// created_at.
func dailyTotals(payments []models.PackagePayment, loc *time.Location) []DailyTotal {
	out := []DailyTotal{}
	for _, p := range payments {
		day := p.CreatedAt.In(loc).Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Count++
			out[n-1].Amount += p.Amount
			continue
		}
		out = append(out, DailyTotal{Date: day, Count: 1, Amount: p.Amount})
	}
	return out
}

type HealthReport struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Services  map[string]bool `json:"services"`
	Uptime    float64         `json:"uptime"`
	Version   string          `json:"version"`
}

// Healthy is false when any dependency check failed.
func (r *HealthReport) Healthy() bool { return r.Status == "healthy" }

// Health checks the database, the gateway credentials and the package catalog.
func (s *SubscriptionService) Health(ctx context.Context, version string) *HealthReport {
	checks := map[string]bool{"database": false, "payos": false, "cache": false}

	if sqlDB, err := s.db.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
		checks["database"] = true
	}

	if s.gateway != nil {
		checks["payos"] = true
		if c, ok := s.gateway.(interface{ Configured() bool }); ok {
			checks["payos"] = c.Configured()
		}
	}

	checks["cache"] = len(s.Packages()) > 0

	status := "healthy"
	for _, ok := range checks {
		if !ok {
			status = "degraded"
		}
	}
	return &HealthReport{
		Status:    status,
		Timestamp: s.now(),
		Services:  checks,
		Uptime:    time.Since(s.started).Seconds(),
		Version:   version,
	}
}

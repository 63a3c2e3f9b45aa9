package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/services"
)

type DashboardStatsResponse struct {
	TotalUsers        int64                           `json:"total_users"`
	DoctorsByStatus   map[string]int64                `json:"doctors_by_status"`
	SchedulesByStatus map[models.ScheduleStatus]int64 `json:"schedules_by_status"`
	PaidRevenue       int64                           `json:"paid_revenue"`
	PaymentsByStatus  map[string]int64                `json:"payments_by_status"`
	FeedbackAverage   float64                         `json:"feedback_average"`
	FeedbackTotal     int64                           `json:"feedback_total"`
}

func GetDashboardStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var response DashboardStatsResponse

	database.DB.Model(&models.User{}).Where("is_deleted = ?", false).Count(&response.TotalUsers)

	var err error
	if response.DoctorsByStatus, err = svc.Doctors.CountByStatus(ctx); err != nil {
		return apperr.Respond(c, apperr.Internal("Failed to load statistics", err))
	}
	if response.SchedulesByStatus, err = svc.Schedules.CountByStatus(ctx); err != nil {
		return apperr.Respond(c, apperr.Internal("Failed to load statistics", err))
	}

	database.DB.Model(&models.PackagePayment{}).
		Where("status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&response.PaidRevenue)

	var rows []struct {
		Status string
		Count  int64
	}
	database.DB.Model(&models.PackagePayment{}).Select("status, count(*) as count").Group("status").Scan(&rows)
	response.PaymentsByStatus = map[string]int64{}
	for _, r := range rows {
		response.PaymentsByStatus[r.Status] = r.Count
	}

	stats, err := svc.Feedback.Stats(ctx, nil)
	if err != nil {
		return apperr.Respond(c, err)
	}
	response.FeedbackAverage = stats.Average
	response.FeedbackTotal = stats.Total

	return c.JSON(response)
}

func GetAllUsers(c *fiber.Ctx) error {
	page, limit := queryInt(c, "page", 1), queryInt(c, "limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	search := strings.TrimSpace(c.Query("search"))

	query := database.DB.Model(&models.User{}).Where("is_deleted = ?", false)
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search != "" {
		searchTerm := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	var users []models.User
	query.Count(&total)
	if err := query.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
	}

	return c.JSON(fiber.Map{
		"data": users,
		"meta": fiber.Map{
			"total_users":  total,
			"total_pages":  int(math.Ceil(float64(total) / float64(limit))),
			"current_page": page,
		},
	})
}

func AdminGetPayments(c *fiber.Ctx) error {
	doctorID, err := optionalUUID(c.Query("doctorId"), "doctor ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	page, err := svc.Subscriptions.History(c.UserContext(), services.PaymentQuery{
		DoctorID:    doctorID,
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

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DoctorTypes = []string{"general", "cardiologist", "dermatologist", "pediatrician", "other"}

// DoctorService covers the doctor application workflow and the public doctor directory.
type DoctorService struct {
	db     *gorm.DB
	quota  *QuotaService
	outbox *Outbox
}

func NewDoctorService(db *gorm.DB, quota *QuotaService, outbox *Outbox) *DoctorService {
	return &DoctorService{db: db, quota: quota, outbox: outbox}
}

type ApplyInput struct {
	DoctorType     string
	Workplace      *string
	Description    *string
	Certifications []string
	Education      []string
	WorkExperience []string
}

func validDoctorType(t string) bool {
	for _, d := range DoctorTypes {
		if d == t {
			return true
		}
	}
	return false
}

func jsonList(items []string) (datatypes.JSON, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	return datatypes.JSON(b), err
}

// Apply files or refiles a doctor application. A pending or rejected application may be
// replaced; an accepted one may not.
func (s *DoctorService) Apply(ctx context.Context, userID uuid.UUID, in ApplyInput) (*models.Doctor, error) {
	if !validDoctorType(in.DoctorType) {
		return nil, apperr.Validation("Invalid doctor type").With("allowed", DoctorTypes)
	}
	certs, err := jsonList(in.Certifications)
	if err != nil {
		return nil, apperr.Validation("Invalid certifications")
	}
	edu, err := jsonList(in.Education)
	if err != nil {
		return nil, apperr.Validation("Invalid education")
	}
	work, err := jsonList(in.WorkExperience)
	if err != nil {
		return nil, apperr.Validation("Invalid work experience")
	}

	var doctor models.Doctor
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ? AND is_deleted = ?", userID, false).Error; err != nil {
			return notFoundOr(err, "User not found")
		}
		if user.Role == models.RoleAdmin {
			return apperr.Authorization("Admins cannot apply as doctors")
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doctor, "user_id = ?", userID).Error
		switch {
		case err == nil:
			if doctor.ApplicationStatus == models.ApplicationAccepted {
				return apperr.Conflict("Your doctor application is already approved")
			}
			return tx.Model(&doctor).Updates(map[string]any{
				"doctor_type":        in.DoctorType,
				"workplace":          in.Workplace,
				"description":        in.Description,
				"certifications":     certs,
				"education":          edu,
				"work_experience":    work,
				"application_status": models.ApplicationPending,
				"rejection_message":  nil,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			doctor = models.Doctor{
				UserID:              userID,
				DoctorType:          in.DoctorType,
				Workplace:           in.Workplace,
				Description:         in.Description,
				Certifications:      certs,
				Education:           edu,
				WorkExperience:      work,
				ApplicationStatus:   models.ApplicationPending,
				SubscriptionPackage: models.PackageFree,
				ScheduleLimits:      models.ScheduleLimits{Weekly: WeeklyLimit(models.PackageFree)},
			}
			return tx.Omit("User").Create(&doctor).Error
		default:
			return apperr.Internal("Failed to load application", err)
		}
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Internal("Failed to submit application", err)
	}
	return s.Get(ctx, userID)
}

// Handle is the admin decision on a pending application.
func (s *DoctorService) Handle(ctx context.Context, doctorID uuid.UUID, status, rejectionMessage string) (*models.Doctor, error) {
	if status != models.ApplicationAccepted && status != models.ApplicationRejected {
		return nil, apperr.Validation("Status must be 'accepted' or 'rejected'")
	}
	rejectionMessage = strings.TrimSpace(rejectionMessage)
	if status == models.ApplicationRejected && rejectionMessage == "" {
		return nil, apperr.Validation("Rejection message is required when rejecting")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doctor models.Doctor
		if err := tx.Preload("User").First(&doctor, "user_id = ?", doctorID).Error; err != nil {
			return notFoundOr(err, "Doctor not found")
		}
		if doctor.ApplicationStatus != models.ApplicationPending {
			return apperr.Conflict(fmt.Sprintf("Current status: %s", doctor.ApplicationStatus))
		}

		updates := map[string]any{"application_status": status, "rejection_message": nil}
		if status == models.ApplicationRejected {
			updates["rejection_message"] = rejectionMessage
		}
		res := tx.Model(&models.Doctor{}).
			Where("user_id = ? AND application_status = ?", doctorID, models.ApplicationPending).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal("Failed to update application status", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Application changed while handling, try again")
		}

		subject, body := applicationEmail(&doctor.User, status, rejectionMessage)
		if status == models.ApplicationAccepted {
			if err := tx.Model(&models.User{}).Where("id = ?", doctorID).Update("role", models.RoleDoctor).Error; err != nil {
				return apperr.Internal("Failed to update user role", err)
			}
			if err := s.quota.ApplyPackage(tx, doctorID, doctor.SubscriptionPackage); err != nil {
				return err
			}
		}
		return s.outbox.Enqueue(tx, Notice{RecipientID: doctorID, EmailSubject: subject, EmailHTML: body})
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Flush()
	return s.Get(ctx, doctorID)
}

func applicationEmail(u *models.User, status, reason string) (string, string) {
	if status == models.ApplicationAccepted {
		return "Your doctor application has been approved",
			fmt.Sprintf("<h1>Congratulations!</h1><p>Hi %s,</p><p>Your application has been approved. You can now publish your weekly schedules.</p>", html.EscapeString(u.FullName))
	}
	return "Update on your doctor application",
		fmt.Sprintf("<h1>Application update</h1><p>Hi %s,</p><p>Your application was not approved.</p><p><b>Reason:</b> %s</p><p>You can update your profile and apply again.</p>",
			html.EscapeString(u.FullName), html.EscapeString(reason))
}

func (s *DoctorService) Get(ctx context.Context, doctorID uuid.UUID) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.db.WithContext(ctx).Preload("User").First(&d, "user_id = ?", doctorID).Error; err != nil {
		return nil, notFoundOr(err, "Doctor not found")
	}
	return &d, nil
}

// GetAccepted returns a doctor visible in the public directory.
func (s *DoctorService) GetAccepted(ctx context.Context, doctorID uuid.UUID) (*models.Doctor, error) {
	d, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if d.ApplicationStatus != models.ApplicationAccepted || d.User.IsDeleted {
		return nil, apperr.NotFound("Doctor not found")
	}
	return d, nil
}

// List returns accepted doctors, priority listings first.
func (s *DoctorService) List(ctx context.Context, doctorType string) ([]models.Doctor, error) {
	q := s.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = doctors.user_id").
		Where("doctors.application_status = ? AND users.is_deleted = ?", models.ApplicationAccepted, false)
	if doctorType != "" {
		q = q.Where("doctors.doctor_type = ?", doctorType)
	}
	var out []models.Doctor
	if err := q.Order("doctors.is_priority DESC").Order("doctors.avg_rating DESC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch doctors", err)
	}
	return out, nil
}

func (s *DoctorService) Pending(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	if err := s.db.WithContext(ctx).Preload("User").
		Where("application_status = ?", models.ApplicationPending).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("Database error", err)
	}
	return out, nil
}

func (s *DoctorService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ApplicationStatus string
		Count             int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Doctor{}).
		Select("application_status, count(*) as count").
		Group("application_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, r := range rows {
		out[r.ApplicationStatus] = r.Count
	}
	return out, nil
}

type UpdateDoctorInput struct {
	Workplace      *string
	Description    *string
	Certifications []string
	Education      []string
	WorkExperience []string
}

// UpdateProfile edits the descriptive fields of an existing doctor profile. The
// application status and subscription are left alone.
func (s *DoctorService) UpdateProfile(ctx context.Context, doctorID uuid.UUID, in UpdateDoctorInput) (*models.Doctor, error) {
	updates := map[string]any{}
	if in.Workplace != nil {
		updates["workplace"] = *in.Workplace
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	lists := []struct {
		column string
		items  []string
	}{
		{"certifications", in.Certifications},
		{"education", in.Education},
		{"work_experience", in.WorkExperience},
	}
	for _, l := range lists {
		if l.items == nil {
			continue
		}
		raw, err := jsonList(l.items)
		if err != nil {
			return nil, apperr.Validation("Invalid " + strings.ReplaceAll(l.column, "_", " "))
		}
		updates[l.column] = raw
	}

	if len(updates) == 0 {
		return s.Get(ctx, doctorID)
	}
	res := s.db.WithContext(ctx).Model(&models.Doctor{}).Where("user_id = ?", doctorID).Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("Failed to update doctor profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Doctor not found")
	}
	return s.Get(ctx, doctorID)
}

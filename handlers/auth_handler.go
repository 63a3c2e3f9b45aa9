package handlers

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/models"
	"github.com/telecare/telehealth_api/notifications"
	"github.com/telecare/telehealth_api/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = newValidator()

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return v
}

type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
}

type UserResponse struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// verificationTTL is how long an emailed verification code stays valid.
const verificationTTL = 30 * time.Minute

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	code, err := utils.VerificationCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create verification code"})
	}
	expires := time.Now().Add(verificationTTL)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	newUser := models.User{
		FullName:                 strings.TrimSpace(req.FullName),
		Email:                    email,
		Phone:                    req.Phone,
		Password:                 string(hashedPassword),
		Role:                     models.RoleUser,
		EmailVerificationCode:    &code,
		EmailVerificationExpires: &expires,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&newUser).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	go notifications.SendEmail(newUser.FullName, newUser.Email, "Welcome to Telecare!", verificationEmail(newUser.FullName, code))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Check your email for the verification code.",
		"user":    userResponse(&newUser),
	})
}

func verificationEmail(name, code string) string {
	return fmt.Sprintf("<h1>Welcome!</h1><p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in 30 minutes.</p><p>Once verified you can book appointments with our doctors.</p>",
		html.EscapeString(name), code)
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// VerifyEmail checks the emailed code and marks the account verified.
func VerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var user models.User
	err := database.DB.
		Where("email = ? AND email_verification_code = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(req.Email)), req.Code, false).
		First(&user).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid verification code or email"})
	}
	if user.EmailVerificationExpires == nil || time.Now().After(*user.EmailVerificationExpires) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Verification code has expired"})
	}

	if err := database.DB.Model(&user).Updates(map[string]any{
		"is_verified":                true,
		"email_verification_code":    nil,
		"email_verification_expires": nil,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify email"})
	}
	user.IsVerified = true

	return c.JSON(fiber.Map{"message": "Email verified successfully", "user": userResponse(&user)})
}

// ResendVerification issues a fresh code to an account that is not verified yet.
func ResendVerification(c *fiber.Ctx) error {
	var req ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var user models.User
	if err := database.DB.Where("email = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(req.Email)), false).
		First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if user.IsVerified {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is already verified"})
	}

	code, err := utils.VerificationCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create verification code"})
	}
	if err := database.DB.Model(&user).Updates(map[string]any{
		"email_verification_code":    code,
		"email_verification_expires": time.Now().Add(verificationTTL),
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create verification code"})
	}

	go notifications.SendEmail(user.FullName, user.Email, "Your Telecare verification code", verificationEmail(user.FullName, code))
	return c.JSON(fiber.Map{"message": "A new verification code has been sent"})
}

func LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var user models.User
	result := database.DB.Where("email = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(req.Email)), false).First(&user)
	if result.Error != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if !user.IsVerified {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Please verify your email before logging in"})
	}

	t, err := IssueToken(user.ID.String(), user.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}

	return c.JSON(fiber.Map{
		"token": t,
		"user":  userResponse(&user),
	})
}

// IssueToken signs a session token carrying user_id and role.
func IssueToken(userID, role string) (string, error) {
	ttl, err := strconv.Atoi(config.Config("JWT_TTL_HOURS"))
	if err != nil || ttl <= 0 {
		ttl = 72
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Duration(ttl) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Config("JWT_SECRET")))
}

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	Env                       string `mapstructure:"APP_ENV"`
	Port                      string `mapstructure:"PORT"`
	LogLevel                  string `mapstructure:"LOG_LEVEL"`
	TimeZone                  string `mapstructure:"APP_TIMEZONE"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	JWTTTLHours               int    `mapstructure:"JWT_TTL_HOURS"`
	AdminEmail                string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword             string `mapstructure:"ADMIN_PASSWORD"`
	AdminFullName             string `mapstructure:"ADMIN_FULL_NAME"`
	SMTPHost                  string `mapstructure:"SMTP_HOST"`
	SMTPPort                  int    `mapstructure:"SMTP_PORT"`
	SMTPUser                  string `mapstructure:"SMTP_USER"`
	SMTPPass                  string `mapstructure:"SMTP_PASS"`
	EmailSenderName           string `mapstructure:"EMAIL_SENDER_NAME"`
	CloudinaryURL             string `mapstructure:"CLOUDINARY_URL"`
	PayOSClientID             string `mapstructure:"PAYOS_CLIENT_ID"`
	PayOSAPIKey               string `mapstructure:"PAYOS_API_KEY"`
	PayOSChecksumKey          string `mapstructure:"PAYOS_CHECKSUM_KEY"`
	PayOSBaseURL              string `mapstructure:"PAYOS_BASE_URL"`
	APIURL                    string `mapstructure:"API_URL"`
	FrontendURL               string `mapstructure:"FRONTEND_URL"`
	WebhookRateLimitPerSecond int    `mapstructure:"WEBHOOK_RATE_LIMIT_PER_SECOND"`
	Version                   string `mapstructure:"APP_VERSION"`
}

var keys = []string{
	"APP_ENV", "PORT", "LOG_LEVEL", "APP_TIMEZONE", "DATABASE_URL",
	"JWT_SECRET", "JWT_TTL_HOURS",
	"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_FULL_NAME",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "EMAIL_SENDER_NAME",
	"CLOUDINARY_URL",
	"PAYOS_CLIENT_ID", "PAYOS_API_KEY", "PAYOS_CHECKSUM_KEY", "PAYOS_BASE_URL",
	"API_URL", "FRONTEND_URL", "WEBHOOK_RATE_LIMIT_PER_SECOND", "APP_VERSION",
}

var (
	loadOnce sync.Once
	v        *viper.Viper
)

func load() {
	// .env is optional; system environment wins either way.
	_ = godotenv.Load(".env")

	v = viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("JWT_TTL_HOURS", 72)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_SENDER_NAME", "Telecare")
	v.SetDefault("PAYOS_BASE_URL", "https://api-merchant.payos.vn")
	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("WEBHOOK_RATE_LIMIT_PER_SECOND", 1)
	v.SetDefault("APP_VERSION", "1.0.0")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Config returns the raw string value for key.
func Config(key string) string {
	loadOnce.Do(load)
	return v.GetString(key)
}

func Load() (*Settings, error) {
	loadOnce.Do(load)

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return s, nil
}

// Location is the wall-clock zone schedules are expressed in.
func Location() *time.Location {
	name := Config("APP_TIMEZONE")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

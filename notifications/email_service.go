package notifications

import (
	"fmt"
	"strconv"
	"strings"

	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(toName, toEmail, subject, htmlContent string) error
}

type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	senderName string
}

var EmailClient Mailer

func InitEmailService() {
	host := config.Config("SMTP_HOST")
	user := config.Config("SMTP_USER")
	pass := config.Config("SMTP_PASS")
	senderName := config.Config("EMAIL_SENDER_NAME")

	port, err := strconv.Atoi(config.Config("SMTP_PORT"))
	if err != nil {
		logger.Log.Warn().Str("port", config.Config("SMTP_PORT")).Msg("⚠️ Invalid SMTP port, email disabled")
		EmailClient = nil
		return
	}

	if host == "" || user == "" || pass == "" {
		logger.Log.Warn().Msg("⚠️ Email service not configured. Missing SMTP host, user or password.")
		EmailClient = nil
		return
	}

	EmailClient = NewSMTPMailer(host, port, user, pass, senderName)
	logger.Log.Info().Str("host", host).Msg("✅ Email service initialized successfully.")
}

func NewSMTPMailer(host string, port int, user, pass, senderName string) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(host, port, user, pass),
		from:       user,
		senderName: senderName,
	}
}

func (s *SMTPMailer) Send(toName, toEmail, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, s.senderName))
	m.SetHeader("To", m.FormatAddress(toEmail, toName))
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlContent)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// SendEmail sends directly, bypassing the outbox. Used for account mail that is not tied
// to a schedule transition.
func SendEmail(toName, toEmail, subject, htmlContent string) {
	if EmailClient == nil {
		logger.Log.Debug().Str("to", toEmail).Msg("Email client not initialized, skipping email send.")
		return
	}

	if err := EmailClient.Send(toName, toEmail, subject, htmlContent); err != nil {
		logger.Log.Error().Err(err).Str("to", toEmail).Msg("🔥 Failed to send email")
		return
	}
	logger.Log.Info().Str("to", toEmail).Msg("✅ Email sent successfully")
}

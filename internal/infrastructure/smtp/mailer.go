package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/astro-auth-api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
	SendOTPEmail(to, otp string, expiresInMinutes int) error
}

type mailer struct {
	host     string
	port     string
	from     string
	fromName string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.fromName, m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// SendOTPEmail delivers a sign-in code. The plaintext code exists only in
// this message; it is never persisted or logged.
func (m *mailer) SendOTPEmail(to, otp string, expiresInMinutes int) error {
	subject := fmt.Sprintf("Your Verification Code - %s", m.fromName)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"You have requested to sign in to your account. Please use the following verification code:\r\n\r\n"+
			"    %s\r\n\r\n"+
			"This code will expire in %d minutes.\r\n\r\n"+
			"If you did not request this code, please ignore this email.\r\n\r\n"+
			"This is an automated message, please do not reply.\r\n",
		otp, expiresInMinutes,
	)
	return m.SendEmail(to, subject, body)
}

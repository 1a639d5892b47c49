package util

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ariebrainware/api-sentinel/config"
)

// Mailer sends one alert message to a set of recipients.
type Mailer interface {
	Send(recipients []string, subject, body string) error
}

// SMTPMailer delivers alerts through a plain SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     uint16
	Username string
	Password string
	From     string
}

// NewSMTPMailerFromConfig builds a mailer from the SMTP settings in config.
func NewSMTPMailerFromConfig(cfg *config.Config) *SMTPMailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     from,
	}
}

func (m *SMTPMailer) Send(recipients []string, subject, body string) error {
	if m.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients provided")
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	msg := strings.Builder{}
	msg.WriteString("From: " + m.From + "\r\n")
	msg.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	if err := smtp.SendMail(addr, auth, m.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

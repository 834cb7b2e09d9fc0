package smtp

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-api-community/internal/config"
)

// Mailer sends plain-text e-mails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := m.host + ":" + m.port
	if err := m.send(addr, auth, m.from, []string{to}, buildMessage(m.from, to, subject, body)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// buildMessage renders an RFC 5322 message. Header values are stripped of
// line breaks so user input cannot inject headers.
func buildMessage(from, to, subject, body string) []byte {
	clean := strings.NewReplacer("\r", "", "\n", "")
	var b strings.Builder
	b.WriteString("From: " + clean.Replace(from) + "\r\n")
	b.WriteString("To: " + clean.Replace(to) + "\r\n")
	b.WriteString("Subject: " + clean.Replace(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

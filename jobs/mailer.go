package jobs

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text email over SMTP. With no host configured it logs
// the message instead, which keeps local development free of a mail relay.
type Mailer struct {
	Host   string
	Port   int
	From   string
	Logger *slog.Logger
}

func NewMailer(host string, port int, from string, logger *slog.Logger) *Mailer {
	return &Mailer{Host: host, Port: port, From: from, Logger: logger}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.Host == "" {
		m.Logger.Info("mail (no relay configured)",
			slog.String("to", to), slog.String("subject", subject))
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	return smtp.SendMail(addr, nil, m.From, []string{to}, []byte(msg.String()))
}

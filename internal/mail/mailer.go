package mail

import (
	"bytes"
	"context"
	"io"
	"net/smtp"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers mail over plain SMTP.
type SMTPMailer struct {
	addr     string
	from     string
	username string
	password string
}

// NewSMTPMailer builds a mailer for the given server address ("host:port").
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, username: username, password: password}
}

// Send builds a MIME message and hands it to the SMTP server.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var buf bytes.Buffer
	var header gomail.Header
	header.SetDate(time.Now())
	header.SetAddressList("From", []*gomail.Address{{Address: m.from}})
	header.SetAddressList("To", []*gomail.Address{{Address: msg.To}})
	header.SetSubject(msg.Subject)

	writer, err := gomail.CreateSingleInlineWriter(&buf, header)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(writer, msg.Body); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		host := m.addr
		if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}
	return smtp.SendMail(m.addr, auth, m.from, []string{msg.To}, buf.Bytes())
}

// LogMailer logs instead of sending; used when no SMTP server is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds the no-op mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and drops it.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email suppressed (no SMTP server configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

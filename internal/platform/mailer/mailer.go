// Package mailer delivers transactional e-mail.
package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"
)

// Sender delivers one message with optional HTML and text parts.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
	log     *zap.Logger
}

func NewSMTPSender(host string, port int, from, user, pass, tlsMode string, log *zap.Logger) *SMTPSender {
	if tlsMode == "" {
		tlsMode = "auto"
	}
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, TLSMode: tlsMode, log: log}
}

func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// multipart/alternative when both parts are present
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.Info("smtp_send_ok", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

// Send logs recipient and subject. The body may carry a recovery token, so it
// is only written at debug level.
func (s *LogSender) Send(to, subject, _, textBody string) error {
	s.log.Info("mail_not_delivered", zap.String("to", to), zap.String("subject", subject))
	s.log.Debug("mail_not_delivered_body", zap.String("to", to), zap.String("body", textBody))
	return nil
}

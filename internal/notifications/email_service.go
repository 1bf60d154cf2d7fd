package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"

	"voyago/internal/shared/config"
)

// EmailService sends a rendered email, optionally with an attachment.
// Delivery failure never rolls back the state change that triggered it.
type EmailService interface {
	Send(ctx context.Context, to, subject, htmlBody string, attachment *Attachment) error
}

// SMTPEmailService delivers over SMTP with STARTTLS
type SMTPEmailService struct {
	cfg config.EmailConfig
}

func NewSMTPEmailService(cfg config.EmailConfig) (*SMTPEmailService, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return nil, fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}
	return &SMTPEmailService{cfg: cfg}, nil
}

func (s *SMTPEmailService) Send(ctx context.Context, to, subject, htmlBody string, attachment *Attachment) error {
	message := s.buildMessage(to, subject, htmlBody, attachment)

	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	if err := s.sendWithSTARTTLS(addr, auth, to, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %s: %s", to, subject)
	return nil
}

// buildMessage assembles a MIME message, multipart/mixed when an
// attachment is present.
func (s *SMTPEmailService) buildMessage(to, subject, htmlBody string, attachment *Attachment) []byte {
	var buf bytes.Buffer
	boundary := "voyago-mixed-boundary"

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromEmail))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if attachment == nil {
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(htmlBody)
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary))

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString(fmt.Sprintf("Content-Type: %s\r\n", attachment.MIMEType))
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", attachment.Filename))

	encoded := base64.StdEncoding.EncodeToString(attachment.Data)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded + "\r\n")

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return buf.Bytes()
}

func (s *SMTPEmailService) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(s.cfg.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return writer.Close()
}

// LogEmailService only logs outgoing mail. Used when SMTP is not
// configured.
type LogEmailService struct{}

func (LogEmailService) Send(ctx context.Context, to, subject, htmlBody string, attachment *Attachment) error {
	if attachment != nil {
		log.Printf("[email disabled] to=%s subject=%q attachment=%s (%d bytes)", to, subject, attachment.Filename, len(attachment.Data))
		return nil
	}
	log.Printf("[email disabled] to=%s subject=%q", to, subject)
	return nil
}

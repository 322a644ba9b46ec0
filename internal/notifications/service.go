package notifications

import (
	"context"
	"fmt"
	"os"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"catkeygen/internal/config"
)

// Report carries the rendered run summary plus the report artifacts to
// attach.
type Report struct {
	Subject     string
	Body        string
	Attachments []string
}

// Service defines the notification surface exposed to the run pipeline.
type Service interface {
	SendRunReport(ctx context.Context, report Report) error
	TestNotification(ctx context.Context) error
}

// NewService builds an email notification service when email delivery is
// enabled and configured. Otherwise a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Email.Enabled {
		return noopService{}
	}
	if strings.TrimSpace(cfg.Email.SMTPServer) == "" || strings.TrimSpace(cfg.Email.Sender) == "" {
		return noopService{}
	}

	service := &mailService{
		sender:     strings.TrimSpace(cfg.Email.Sender),
		recipients: append([]string(nil), cfg.Email.Recipients...),
	}
	dialer := gomail.NewDialer(cfg.Email.SMTPServer, cfg.Email.SMTPPort, service.sender, cfg.Email.Password)
	service.send = dialer.DialAndSend
	return service
}

type mailService struct {
	sender     string
	recipients []string
	send       func(...*gomail.Message) error
}

func (m *mailService) SendRunReport(ctx context.Context, report Report) error {
	if m == nil || m.send == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(m.recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	message, err := m.buildMessage(report)
	if err != nil {
		return err
	}
	if err := m.send(message); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	return nil
}

func (m *mailService) TestNotification(ctx context.Context) error {
	return m.SendRunReport(ctx, Report{
		Subject: "CatKeyGen - Test",
		Body:    "Email notification test",
	})
}

func (m *mailService) buildMessage(report Report) (*gomail.Message, error) {
	message := gomail.NewMessage()
	message.SetHeader("From", m.sender)
	message.SetHeader("To", m.recipients...)
	subject := strings.TrimSpace(report.Subject)
	if subject == "" {
		subject = "CatKeyGen - Run Report"
	}
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", report.Body)

	for _, attachment := range report.Attachments {
		attachment = strings.TrimSpace(attachment)
		if attachment == "" {
			continue
		}
		if _, err := os.Stat(attachment); err != nil {
			return nil, fmt.Errorf("attach report %s: %w", attachment, err)
		}
		message.Attach(attachment)
	}
	return message, nil
}

type noopService struct{}

func (noopService) SendRunReport(context.Context, Report) error { return nil }
func (noopService) TestNotification(context.Context) error      { return nil }

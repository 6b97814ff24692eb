// Package email delivers supervisor notifications over SMTP.
package email

import (
	"context"
	"fmt"

	"fieldgate_backend/platform/config"
)

// ReviewNotification describes a job that crossed the exception threshold.
type ReviewNotification struct {
	JobID          string
	JobTitle       string
	JobAddress     string
	LeadTechID     string
	ExceptionCount int
	Threshold      int
	Stages         []string
}

type Sender interface {
	SendReviewNotification(ctx context.Context, toEmail string, n ReviewNotification) error
}

type NoopSender struct{}

func (NoopSender) SendReviewNotification(ctx context.Context, toEmail string, n ReviewNotification) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op
// sender otherwise.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetEmailFromAddress() == "" {
		return nil, fmt.Errorf("email from address is required for SMTP")
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

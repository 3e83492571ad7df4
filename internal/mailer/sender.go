// Package mailer delivers queued emails through Resend: an instant
// dispatcher for immediate rows and an hourly digest for aggregated ones.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"crewdeck.app/herald/core/config"
)

// EmailSender is the delivery contract the dispatchers depend on.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html, text, emailType string) error
}

type Sender struct {
	client *resend.Client
	cfg    config.EmailConfig
	sleep  func(time.Duration)
}

func NewSender(cfg config.EmailConfig) *Sender {
	var client *resend.Client
	if cfg.ResendAPIKey != "" {
		client = resend.NewClient(cfg.ResendAPIKey)
	}
	return &Sender{client: client, cfg: cfg, sleep: time.Sleep}
}

// Send delivers one email, throttled to the configured requests per
// second. Rate-limit responses retry with linear backoff up to the
// configured maximum; any other error fails immediately.
func (s *Sender) Send(ctx context.Context, to, subject, html, text, emailType string) error {
	recipient := s.recipient(ctx, to)

	if s.cfg.DryRun {
		slog.InfoContext(ctx, "dry run, not sending email",
			"to", recipient, "original_to", to, "subject", subject, "email_type", emailType)
		return nil
	}
	if s.client == nil {
		return fmt.Errorf("resend client not configured")
	}

	params := &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{recipient},
		Subject: subject,
		Html:    html,
		Text:    text,
		Tags:    []resend.Tag{{Name: "email_type", Value: emailType}},
	}

	throttle := time.Second / time.Duration(s.cfg.SendsPerSecond)
	for attempt := 1; attempt <= s.cfg.MaxSendRetries; attempt++ {
		s.sleep(throttle * time.Duration(attempt))

		sent, err := s.client.Emails.SendWithContext(ctx, params)
		if err == nil {
			slog.InfoContext(ctx, "email sent", "to", recipient, "resend_id", sent.Id, "email_type", emailType)
			return nil
		}
		if !isRateLimited(err) {
			return fmt.Errorf("send email to %s: %w", recipient, err)
		}
		slog.WarnContext(ctx, "resend rate limit hit",
			"attempt", attempt, "max_attempts", s.cfg.MaxSendRetries, "error", err)
		if attempt == s.cfg.MaxSendRetries {
			return fmt.Errorf("send email to %s: rate limited after %d attempts: %w", recipient, attempt, err)
		}
	}
	return nil
}

// recipient applies the force-to and test-mode overrides.
func (s *Sender) recipient(ctx context.Context, userEmail string) string {
	if s.cfg.ForceToEmail != "" {
		return s.cfg.ForceToEmail
	}
	if s.cfg.TestMode {
		if s.cfg.TestRecipient != "" {
			return s.cfg.TestRecipient
		}
		slog.WarnContext(ctx, "test mode enabled without a test recipient, using real address", "to", userEmail)
	}
	return userEmail
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") || strings.Contains(msg, "429") || strings.Contains(msg, "limit")
}

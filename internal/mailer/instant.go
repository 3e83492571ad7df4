package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// InstantDispatcher sends immediate pending emails oldest first. Each row
// is claimed with a conditional update, so concurrent dispatchers never
// double-send.
type InstantDispatcher struct {
	emails    store.EmailStore
	profiles  store.ProfileStore
	sender    EmailSender
	batchSize int32
}

func NewInstantDispatcher(emails store.EmailStore, profiles store.ProfileStore, sender EmailSender, batchSize int32) *InstantDispatcher {
	return &InstantDispatcher{emails: emails, profiles: profiles, sender: sender, batchSize: batchSize}
}

// Run drains pending immediate emails. Per-item failures mark the row
// failed and never abort the batch.
func (d *InstantDispatcher) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.mailer.instant"})

	pending, err := d.emails.ListPending(ctx, model.DeliveryTypeImmediate, d.batchSize)
	if err != nil {
		return fmt.Errorf("list pending emails: %w", err)
	}

	sent, failed, skipped := 0, 0, 0
	for i := range pending {
		switch d.processOne(ctx, &pending[i]) {
		case outcomeSent:
			sent++
		case outcomeFailed:
			failed++
		case outcomeSkipped:
			skipped++
		}
	}

	slog.InfoContext(ctx, "instant email run finished",
		"sent", sent, "failed", failed, "skipped", skipped)
	return nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (d *InstantDispatcher) processOne(ctx context.Context, email *model.PendingEmail) outcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EmailID: logger.Ptr(email.ID),
		UserID:  logger.Ptr(email.UserID),
	})

	claimed, err := d.emails.Claim(ctx, email.ID)
	if err != nil {
		slog.ErrorContext(ctx, "email claim failed", "error", err)
		return outcomeFailed
	}
	if !claimed {
		return outcomeSkipped
	}

	if err := d.deliver(ctx, email); err != nil {
		slog.ErrorContext(ctx, "email delivery failed", "error", err)
		if markErr := d.emails.MarkFailed(ctx, email.ID); markErr != nil {
			slog.ErrorContext(ctx, "marking email failed errored", "error", markErr)
		}
		return outcomeFailed
	}

	if err := d.emails.MarkSent(ctx, email.ID); err != nil {
		slog.ErrorContext(ctx, "marking email sent errored", "error", err)
	}
	return outcomeSent
}

func (d *InstantDispatcher) deliver(ctx context.Context, email *model.PendingEmail) error {
	profile, err := d.profiles.GetByID(ctx, email.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("recipient profile %s not found", email.UserID)
		}
		return fmt.Errorf("load recipient profile: %w", err)
	}
	if profile.Email == nil || *profile.Email == "" {
		return fmt.Errorf("recipient %s has no email address", email.UserID)
	}

	htmlBody, textBody, err := Render(email)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, *profile.Email, email.Subject, htmlBody, textBody, string(email.EventType))
}

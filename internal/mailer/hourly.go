package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// HourlyDigest groups all pending aggregated emails by user and sends one
// digest per user. Rows lost to a concurrent claim are skipped; the rows
// of one group share a terminal status.
type HourlyDigest struct {
	emails    store.EmailStore
	profiles  store.ProfileStore
	sender    EmailSender
	batchSize int32
}

func NewHourlyDigest(emails store.EmailStore, profiles store.ProfileStore, sender EmailSender, batchSize int32) *HourlyDigest {
	return &HourlyDigest{emails: emails, profiles: profiles, sender: sender, batchSize: batchSize}
}

func (d *HourlyDigest) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.mailer.hourly"})

	pending, err := d.emails.ListPending(ctx, model.DeliveryTypeAggregated, d.batchSize)
	if err != nil {
		return fmt.Errorf("list pending aggregated emails: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "no aggregated emails pending")
		return nil
	}

	byUser := make(map[string][]model.PendingEmail)
	for _, email := range pending {
		byUser[email.UserID] = append(byUser[email.UserID], email)
	}

	usersSent := 0
	for userID, group := range byUser {
		if d.processGroup(ctx, userID, group) {
			usersSent++
		}
	}
	slog.InfoContext(ctx, "hourly digest run finished",
		"users_total", len(byUser), "users_sent", usersSent)
	return nil
}

// processGroup claims the user's rows, sends one digest covering every
// claimed row, then marks them all sent or all failed.
func (d *HourlyDigest) processGroup(ctx context.Context, userID string, group []model.PendingEmail) bool {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})

	var claimed []model.PendingEmail
	for _, email := range group {
		ok, err := d.emails.Claim(ctx, email.ID)
		if err != nil {
			slog.ErrorContext(ctx, "email claim failed", "email_id", email.ID, "error", err)
			continue
		}
		if ok {
			claimed = append(claimed, email)
		}
	}
	if len(claimed) == 0 {
		return false
	}

	if err := d.sendDigest(ctx, userID, claimed); err != nil {
		slog.ErrorContext(ctx, "digest delivery failed", "error", err, "rows", len(claimed))
		d.markAll(ctx, claimed, d.emails.MarkFailed)
		return false
	}
	d.markAll(ctx, claimed, d.emails.MarkSent)
	return true
}

func (d *HourlyDigest) sendDigest(ctx context.Context, userID string, claimed []model.PendingEmail) error {
	profile, err := d.profiles.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load recipient profile: %w", err)
	}
	if profile.Email == nil || *profile.Email == "" {
		return fmt.Errorf("recipient %s has no email address", userID)
	}

	items := make([]DigestItem, len(claimed))
	for i := range claimed {
		projectName := ""
		if claimed[i].ProjectName != nil {
			projectName = *claimed[i].ProjectName
		}
		items[i] = DigestItem{
			ProjectName: projectName,
			EventType:   string(claimed[i].EventType),
			Line:        DigestLine(&claimed[i]),
		}
	}

	subject, htmlBody, textBody := BuildDigest(profile.FullName, items)
	return d.sender.Send(ctx, *profile.Email, subject, htmlBody, textBody, "hourly_digest")
}

func (d *HourlyDigest) markAll(ctx context.Context, emails []model.PendingEmail, mark func(context.Context, int64) error) {
	for _, email := range emails {
		if err := mark(ctx, email.ID); err != nil {
			slog.ErrorContext(ctx, "updating email status errored", "email_id", email.ID, "error", err)
		}
	}
}

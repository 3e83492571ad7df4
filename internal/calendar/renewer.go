package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/core/config"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// tokenRefreshLeeway refreshes the access token when it expires this soon.
const tokenRefreshLeeway = 5 * time.Minute

// Provider is the slice of Client the renewer needs, split out so tests
// can stub the REST calls.
type Provider interface {
	RefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error)
	StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error
	CreateWatch(ctx context.Context, accessToken, calendarID, channelID, webhookURL string, ttl time.Duration) (string, time.Time, error)
}

type Renewer struct {
	calendars store.CalendarStore
	provider  Provider
	cfg       config.CalendarConfig
	now       func() time.Time
}

func NewRenewer(calendars store.CalendarStore, provider Provider, cfg config.CalendarConfig) *Renewer {
	return &Renewer{calendars: calendars, provider: provider, cfg: cfg, now: time.Now}
}

// Run renews every watch channel expiring inside the renewal window.
func (r *Renewer) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.calendar.renewer"})

	expiring, err := r.calendars.ListExpiringWatches(ctx, r.now().Add(r.cfg.RenewWithin))
	if err != nil {
		return fmt.Errorf("list expiring watches: %w", err)
	}

	renewed := 0
	for i := range expiring {
		if err := r.renewOne(ctx, &expiring[i]); err != nil {
			slog.ErrorContext(ctx, "watch renewal failed",
				"connection_id", expiring[i].ID, "user_id", expiring[i].UserID, "error", err)
			continue
		}
		renewed++
	}
	slog.InfoContext(ctx, "calendar renewal run finished",
		"expiring", len(expiring), "renewed", renewed)
	return nil
}

func (r *Renewer) renewOne(ctx context.Context, conn *model.CalendarConnection) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(conn.UserID)})

	accessToken := conn.AccessToken
	if r.now().Add(tokenRefreshLeeway).After(conn.TokenExpiresAt) {
		token, expiresAt, err := r.provider.RefreshToken(ctx, conn.RefreshToken)
		if err != nil {
			return fmt.Errorf("refresh access token: %w", err)
		}
		if err := r.calendars.UpdateTokens(ctx, conn.ID, token, expiresAt); err != nil {
			return fmt.Errorf("persist refreshed token: %w", err)
		}
		accessToken = token
	}

	// The provider expires orphaned channels on its own; failure to stop
	// the old one is logged and tolerated.
	if conn.WatchChannelID != nil && conn.WatchResourceID != nil {
		if err := r.provider.StopChannel(ctx, accessToken, *conn.WatchChannelID, *conn.WatchResourceID); err != nil {
			slog.WarnContext(ctx, "stopping old watch channel failed",
				"channel_id", *conn.WatchChannelID, "error", err)
		}
	}

	channelID := uuid.NewString()
	resourceID, expiration, err := r.provider.CreateWatch(ctx, accessToken, "primary", channelID, r.cfg.WebhookURL, r.cfg.WatchTTL)
	if err != nil {
		return fmt.Errorf("create watch channel: %w", err)
	}
	if err := r.calendars.UpdateWatch(ctx, conn.ID, channelID, resourceID, expiration); err != nil {
		return fmt.Errorf("persist new watch: %w", err)
	}

	slog.InfoContext(ctx, "watch channel renewed",
		"channel_id", channelID, "expiration", expiration)
	return nil
}

package store

import (
	"context"
	"time"

	"crewdeck.app/herald/internal/model"
)

type calendarStore struct {
	db DBTX
}

func newCalendarStore(db DBTX) CalendarStore {
	return &calendarStore{db: db}
}

func (s *calendarStore) ListExpiringWatches(ctx context.Context, before time.Time) ([]model.CalendarConnection, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, access_token, refresh_token, token_expires_at, calendar_list,
		       watch_channel_id, watch_resource_id, watch_expiration
		FROM calendar_connections
		WHERE watch_expiration IS NOT NULL AND watch_expiration < $1`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []model.CalendarConnection
	for rows.Next() {
		var c model.CalendarConnection
		if err := rows.Scan(&c.ID, &c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt,
			&c.CalendarList, &c.WatchChannelID, &c.WatchResourceID, &c.WatchExpiration); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (s *calendarStore) UpdateTokens(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE calendar_connections
		SET access_token = $2, token_expires_at = $3
		WHERE id = $1`, id, accessToken, expiresAt)
	return err
}

func (s *calendarStore) UpdateWatch(ctx context.Context, id int64, channelID, resourceID string, expiration time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE calendar_connections
		SET watch_channel_id = $2, watch_resource_id = $3, watch_expiration = $4
		WHERE id = $1`, id, channelID, resourceID, expiration)
	return err
}

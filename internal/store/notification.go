package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type notificationStore struct {
	db DBTX
}

func newNotificationStore(db DBTX) NotificationStore {
	return &notificationStore{db: db}
}

func (s *notificationStore) Insert(ctx context.Context, n *model.Notification) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, event_id, title, body, link_url, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		n.ID, n.UserID, n.EventID, n.Title, n.Body, n.LinkURL, n.Payload,
	)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *notificationStore) ListRecipientsByEvent(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM notifications WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *notificationStore) FindNewestUnreadThreadActivity(ctx context.Context, userID, threadID string) (*model.Notification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, event_id, title, body, link_url, payload, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		  AND read_at IS NULL
		  AND payload->>'type' = 'thread_activity'
		  AND payload->>'thread_id' = $2
		ORDER BY created_at DESC
		LIMIT 1`, userID, threadID)

	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.EventID, &n.Title, &n.Body, &n.LinkURL, &n.Payload, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *notificationStore) IncrementCount(ctx context.Context, notificationID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET payload = jsonb_set(payload, '{count}', to_jsonb(COALESCE((payload->>'count')::int, 1) + 1))
		WHERE id = $1`, notificationID)
	return err
}

func (s *notificationStore) ResumeNudgeTierExists(ctx context.Context, userID, projectID string, kind model.ResumeKind, tier int) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1
			  AND payload->>'type' = 'resume_incomplete_nudge'
			  AND payload->>'project_id' = $2
			  AND payload->>'resume_kind' = $3
			  AND (payload->>'tier')::int = $4
		)`, userID, projectID, kind, tier).Scan(&exists)
	return exists, err
}

func (s *notificationStore) DeleteResumeNudgesBefore(ctx context.Context, userID, projectID string, kind model.ResumeKind, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE user_id = $1
		  AND payload->>'type' = 'resume_incomplete_nudge'
		  AND payload->>'project_id' = $2
		  AND payload->>'resume_kind' = $3
		  AND created_at < $4`, userID, projectID, kind, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
)

type emailStore struct {
	db DBTX
}

func newEmailStore(db DBTX) EmailStore {
	return &emailStore{db: db}
}

// Enqueue upserts on (event_id, user_id) and resets status to pending, so a
// re-driven event refreshes rather than duplicates its email.
func (s *emailStore) Enqueue(ctx context.Context, e *model.PendingEmail) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO pending_emails (id, event_id, user_id, event_type, delivery_type, project_id, project_name, subject, body_data, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET event_type = EXCLUDED.event_type,
		    delivery_type = EXCLUDED.delivery_type,
		    project_id = EXCLUDED.project_id,
		    project_name = EXCLUDED.project_name,
		    subject = EXCLUDED.subject,
		    body_data = EXCLUDED.body_data,
		    status = 'pending',
		    claimed_at = NULL,
		    sent_at = NULL`,
		e.ID, e.EventID, e.UserID, e.EventType, e.DeliveryType,
		e.ProjectID, e.ProjectName, e.Subject, e.BodyData,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue email: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *emailStore) ListPending(ctx context.Context, delivery model.DeliveryType, limit int32) ([]model.PendingEmail, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, event_id, user_id, event_type, delivery_type, project_id, project_name, subject, body_data, status, claimed_at, sent_at, created_at
		FROM pending_emails
		WHERE status = 'pending' AND delivery_type = $1
		ORDER BY created_at ASC
		LIMIT $2`, delivery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []model.PendingEmail
	for rows.Next() {
		var e model.PendingEmail
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.EventType, &e.DeliveryType,
			&e.ProjectID, &e.ProjectName, &e.Subject, &e.BodyData, &e.Status,
			&e.ClaimedAt, &e.SentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// Claim is a conditional update; false means another dispatcher already
// took the row.
func (s *emailStore) Claim(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE pending_emails
		SET status = 'processing', claimed_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim email %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *emailStore) MarkSent(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE pending_emails SET status = 'sent', sent_at = now() WHERE id = $1`, id)
	return err
}

func (s *emailStore) MarkFailed(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE pending_emails SET status = 'failed' WHERE id = $1`, id)
	return err
}

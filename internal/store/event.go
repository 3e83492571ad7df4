package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type eventStore struct {
	db DBTX
}

func newEventStore(db DBTX) EventStore {
	return &eventStore{db: db}
}

const eventColumns = `id, event_type, actor_id, project_id, org_id, resource_id, thread_id, meeting_id, occurred_at, payload, created_at`

func (s *eventStore) Append(ctx context.Context, event *model.DomainEvent) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO domain_events (id, event_type, actor_id, project_id, org_id, resource_id, thread_id, meeting_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		event.ID, event.EventType, event.ActorID, event.ProjectID, event.OrgID,
		event.ResourceID, event.ThreadID, event.MeetingID, event.OccurredAt, event.Payload,
	)
	if err := row.Scan(&event.CreatedAt); err != nil {
		return fmt.Errorf("append domain event: %w", err)
	}
	return nil
}

func (s *eventStore) GetByID(ctx context.Context, id int64) (*model.DomainEvent, error) {
	row := s.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM domain_events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *eventStore) ListUnclaimed(ctx context.Context, limit int32) ([]model.DomainEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT e.id, e.event_type, e.actor_id, e.project_id, e.org_id, e.resource_id, e.thread_id, e.meeting_id, e.occurred_at, e.payload, e.created_at
		FROM domain_events e
		LEFT JOIN event_processing p ON p.event_id = e.id
		WHERE p.event_id IS NULL
		ORDER BY e.occurred_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *eventStore) ListOccurredBetween(ctx context.Context, from, to time.Time, eventTypes []model.EventType) ([]model.DomainEvent, error) {
	types := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		types[i] = string(t)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM domain_events
		WHERE occurred_at >= $1 AND occurred_at < $2 AND event_type = ANY($3)
		ORDER BY occurred_at ASC`, from, to, types)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *eventStore) Claim(ctx context.Context, eventID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO event_processing (event_id, status, claimed_at)
		VALUES ($1, 'processing', now())
		ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return false, fmt.Errorf("claim event %d: %w", eventID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *eventStore) Complete(ctx context.Context, eventID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE event_processing
		SET status = 'completed', completed_at = now()
		WHERE event_id = $1`, eventID)
	return err
}

func (s *eventStore) Fail(ctx context.Context, eventID int64, errMsg string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE event_processing
		SET status = 'failed', completed_at = now(), error_message = $2, retry_count = retry_count + 1
		WHERE event_id = $1`, eventID, errMsg)
	return err
}

func (s *eventStore) ListFailed(ctx context.Context, limit int32) ([]model.ProcessingRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT event_id, status, claimed_at, completed_at, retry_count, error_message
		FROM event_processing
		WHERE status = 'failed'
		ORDER BY claimed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ProcessingRecord
	for rows.Next() {
		var r model.ProcessingRecord
		if err := rows.Scan(&r.EventID, &r.Status, &r.ClaimedAt, &r.CompletedAt, &r.RetryCount, &r.ErrorMessage); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *eventStore) DeleteProcessingRecord(ctx context.Context, eventID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM event_processing WHERE event_id = $1`, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.DomainEvent, error) {
	var e model.DomainEvent
	err := row.Scan(&e.ID, &e.EventType, &e.ActorID, &e.ProjectID, &e.OrgID,
		&e.ResourceID, &e.ThreadID, &e.MeetingID, &e.OccurredAt, &e.Payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]model.DomainEvent, error) {
	var events []model.DomainEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

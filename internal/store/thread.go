package store

import (
	"context"
	"fmt"
	"time"

	"crewdeck.app/herald/internal/model"
)

type threadStore struct {
	db DBTX
}

func newThreadStore(db DBTX) ThreadStore {
	return &threadStore{db: db}
}

func (s *threadStore) ListParticipantIDs(ctx context.Context, threadID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM chat_thread_participants WHERE thread_id = $1`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *threadStore) ListParticipants(ctx context.Context, threadID string) ([]model.ThreadParticipant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT thread_id, user_id, last_read_at
		FROM chat_thread_participants WHERE thread_id = $1`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []model.ThreadParticipant
	for rows.Next() {
		var p model.ThreadParticipant
		if err := rows.Scan(&p.ThreadID, &p.UserID, &p.LastReadAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *threadStore) ListParticipantIDsBatch(ctx context.Context, threadIDs []string) (map[string][]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT thread_id, user_id FROM chat_thread_participants WHERE thread_id = ANY($1)`, threadIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStringPairs(rows)
}

// ListStaleThreads returns threads whose most recent message is older than
// olderThan, with that message's sender.
func (s *threadStore) ListStaleThreads(ctx context.Context, olderThan time.Time) ([]model.StaleThread, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.project_id, m.user_id, m.created_at
		FROM chat_threads t
		JOIN LATERAL (
			SELECT user_id, created_at
			FROM thread_messages
			WHERE thread_id = t.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON true
		WHERE m.created_at < $1`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []model.StaleThread
	for rows.Next() {
		var t model.StaleThread
		if err := rows.Scan(&t.ThreadID, &t.ProjectID, &t.LatestSenderID, &t.LatestMessageAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *threadStore) CountMessagesSince(ctx context.Context, threadID string, since *time.Time) (int, error) {
	var count int
	var err error
	if since == nil {
		err = s.db.QueryRow(ctx, `
			SELECT count(*) FROM thread_messages WHERE thread_id = $1`, threadID).Scan(&count)
	} else {
		err = s.db.QueryRow(ctx, `
			SELECT count(*) FROM thread_messages WHERE thread_id = $1 AND created_at > $2`, threadID, *since).Scan(&count)
	}
	return count, err
}

func (s *threadStore) NudgeRecorded(ctx context.Context, threadID, userID string, latestMessageAt time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM thread_nudge_log
			WHERE thread_id = $1 AND user_id = $2 AND latest_message_at = $3
		)`, threadID, userID, latestMessageAt).Scan(&exists)
	return exists, err
}

func (s *threadStore) RecordNudge(ctx context.Context, log *model.ThreadNudgeLog) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO thread_nudge_log (thread_id, user_id, latest_message_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id, user_id, latest_message_at) DO NOTHING`,
		log.ThreadID, log.UserID, log.LatestMessageAt)
	if err != nil {
		return fmt.Errorf("record thread nudge: %w", err)
	}
	return nil
}

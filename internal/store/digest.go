package store

import (
	"context"
	"fmt"
	"time"

	"crewdeck.app/herald/internal/model"
)

type digestStore struct {
	db DBTX
}

func newDigestStore(db DBTX) DigestStore {
	return &digestStore{db: db}
}

func (s *digestStore) ListRecordedEventIDs(ctx context.Context, userID string, date time.Time) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT event_id FROM digest_log WHERE user_id = $1 AND digest_date = $2`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *digestStore) RecordBatch(ctx context.Context, records []model.DigestRecord) error {
	for _, r := range records {
		_, err := s.db.Exec(ctx, `
			INSERT INTO digest_log (event_id, user_id, digest_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id, user_id, digest_date) DO NOTHING`,
			r.EventID, r.UserID, r.DigestDate)
		if err != nil {
			return fmt.Errorf("record digest marker for event %d: %w", r.EventID, err)
		}
	}
	return nil
}

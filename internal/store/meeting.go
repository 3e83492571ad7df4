package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type meetingStore struct {
	db DBTX
}

func newMeetingStore(db DBTX) MeetingStore {
	return &meetingStore{db: db}
}

func (s *meetingStore) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, project_id, organizer_id, title, starts_at FROM meetings WHERE id = $1`, id)
	var m model.Meeting
	if err := row.Scan(&m.ID, &m.ProjectID, &m.OrganizerID, &m.Title, &m.StartsAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *meetingStore) ListParticipantIDs(ctx context.Context, meetingID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM meeting_participants WHERE meeting_id = $1`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *meetingStore) ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Meeting, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, project_id, organizer_id, title, starts_at
		FROM meetings
		WHERE starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		var m model.Meeting
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.OrganizerID, &m.Title, &m.StartsAt); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// ListParticipantsNeedingReminder returns participants with no sent marker
// for the given reminder type.
func (s *meetingStore) ListParticipantsNeedingReminder(ctx context.Context, meetingID, reminderType string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT mp.user_id
		FROM meeting_participants mp
		LEFT JOIN meeting_reminders_sent mrs
		  ON mrs.meeting_id = mp.meeting_id
		 AND mrs.user_id = mp.user_id
		 AND mrs.reminder_type = $2
		WHERE mp.meeting_id = $1 AND mrs.meeting_id IS NULL`, meetingID, reminderType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *meetingStore) RecordReminderSent(ctx context.Context, marker *model.MeetingReminderSent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO meeting_reminders_sent (meeting_id, user_id, reminder_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (meeting_id, user_id, reminder_type) DO NOTHING`,
		marker.MeetingID, marker.UserID, marker.ReminderType)
	if err != nil {
		return fmt.Errorf("record reminder sent: %w", err)
	}
	return nil
}

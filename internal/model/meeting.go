package model

import "time"

type Meeting struct {
	StartsAt    time.Time `json:"starts_at"`
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
}

type MeetingParticipant struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
}

// MeetingReminderSent is the dedupe marker preventing duplicate reminders
// for a (meeting, user, reminder type) triple.
type MeetingReminderSent struct {
	SentAt       time.Time `json:"sent_at"`
	MeetingID    string    `json:"meeting_id"`
	UserID       string    `json:"user_id"`
	ReminderType string    `json:"reminder_type"`
}

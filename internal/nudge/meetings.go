package nudge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

const reminderTypeUpcoming = "upcoming"

// MeetingScheduler appends one meeting_reminder event per participant of
// meetings starting inside the reminder window. The sent-marker table
// keeps repeated runs from reminding twice.
type MeetingScheduler struct {
	events         store.EventStore
	meetings       store.MeetingStore
	reminderWindow time.Duration
	now            func() time.Time
}

func NewMeetingScheduler(events store.EventStore, meetings store.MeetingStore, reminderWindow time.Duration) *MeetingScheduler {
	return &MeetingScheduler{
		events:         events,
		meetings:       meetings,
		reminderWindow: reminderWindow,
		now:            time.Now,
	}
}

func (s *MeetingScheduler) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.nudge.meetings"})

	now := s.now()
	meetings, err := s.meetings.ListStartingBetween(ctx, now, now.Add(s.reminderWindow))
	if err != nil {
		return fmt.Errorf("list upcoming meetings: %w", err)
	}

	appended := 0
	for i := range meetings {
		n, err := s.processMeeting(ctx, &meetings[i])
		if err != nil {
			slog.ErrorContext(ctx, "meeting reminder scan failed",
				"meeting_id", meetings[i].ID, "error", err)
			continue
		}
		appended += n
	}
	slog.InfoContext(ctx, "meeting reminder run finished",
		"meetings", len(meetings), "events_appended", appended)
	return nil
}

func (s *MeetingScheduler) processMeeting(ctx context.Context, meeting *model.Meeting) (int, error) {
	unreminded, err := s.meetings.ListParticipantsNeedingReminder(ctx, meeting.ID, reminderTypeUpcoming)
	if err != nil {
		return 0, fmt.Errorf("list unreminded participants: %w", err)
	}

	appended := 0
	for _, userID := range unreminded {
		payload, _ := json.Marshal(map[string]any{"user_id": userID})
		event := &model.DomainEvent{
			ID:         id.New(),
			EventType:  model.EventTypeMeetingReminder,
			ProjectID:  &meeting.ProjectID,
			MeetingID:  &meeting.ID,
			OccurredAt: s.now(),
			Payload:    payload,
		}
		if err := s.events.Append(ctx, event); err != nil {
			slog.ErrorContext(ctx, "appending meeting reminder failed",
				"user_id", userID, "error", err)
			continue
		}
		appended++

		// Marker failure means at worst one duplicate reminder next run.
		if err := s.meetings.RecordReminderSent(ctx, &model.MeetingReminderSent{
			MeetingID:    meeting.ID,
			UserID:       userID,
			ReminderType: reminderTypeUpcoming,
		}); err != nil {
			slog.WarnContext(ctx, "recording reminder marker failed",
				"user_id", userID, "error", err)
		}
	}
	return appended, nil
}

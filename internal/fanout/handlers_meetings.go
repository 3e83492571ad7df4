package fanout

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
)

// Meeting events are targeted inserts, in-app only. Calendar invitations
// already reach the inbox through the meeting provider.

func (h *Handlers) handleMeetingInvited(ctx context.Context, event *model.DomainEvent) (Result, error) {
	var payload meetingInvitedPayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}
	meeting, err := h.loadMeeting(ctx, event)
	if err != nil {
		return Result{}, err
	}

	return h.notifyMeetingUsers(ctx, event, meeting, []string{payload.InviteeUserID},
		model.NotificationTypeMeetingInvited,
		fmt.Sprintf("You were invited to %s", meeting.Title))
}

func (h *Handlers) handleMeetingUpdated(ctx context.Context, event *model.DomainEvent) (Result, error) {
	meeting, err := h.loadMeeting(ctx, event)
	if err != nil {
		return Result{}, err
	}

	participants, err := h.meetings.ListParticipantIDs(ctx, meeting.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list meeting participants: %w", err)
	}
	var targets []string
	for _, userID := range participants {
		if userID != meeting.OrganizerID {
			targets = append(targets, userID)
		}
	}

	return h.notifyMeetingUsers(ctx, event, meeting, targets,
		model.NotificationTypeMeetingUpdated,
		fmt.Sprintf("%s was updated", meeting.Title))
}

func (h *Handlers) handleMeetingReminder(ctx context.Context, event *model.DomainEvent) (Result, error) {
	var payload meetingReminderPayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}
	meeting, err := h.loadMeeting(ctx, event)
	if err != nil {
		return Result{}, err
	}

	return h.notifyMeetingUsers(ctx, event, meeting, []string{payload.UserID},
		model.NotificationTypeMeetingReminder,
		fmt.Sprintf("%s starts soon", meeting.Title))
}

func (h *Handlers) loadMeeting(ctx context.Context, event *model.DomainEvent) (*model.Meeting, error) {
	if event.MeetingID == nil {
		return nil, fmt.Errorf("event %d has no meeting", event.ID)
	}
	meeting, err := h.meetings.GetByID(ctx, *event.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("load meeting %s: %w", *event.MeetingID, err)
	}
	return meeting, nil
}

func (h *Handlers) notifyMeetingUsers(ctx context.Context, event *model.DomainEvent, meeting *model.Meeting, targets []string, notifType model.NotificationType, title string) (Result, error) {
	notified, err := h.alreadyNotified(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}

	body := fmt.Sprintf("Starts at %s", meeting.StartsAt.Format("Jan 2, 3:04 PM MST"))
	link := h.meetingLink(meeting.ProjectID)
	scope := prefs.ScopeFromEvent(event)
	actor := h.actorID(event)

	var result Result
	for _, userID := range targets {
		if userID == actor || notified[userID] {
			continue
		}
		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelInApp) {
			continue
		}
		if err := h.insertNotification(ctx, event, userID, title, body, link, model.NotificationPayload{
			Type: notifType,
		}); err != nil {
			return result, err
		}
		result.Notifications++
	}
	return result, nil
}

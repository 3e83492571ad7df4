package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

// handleChatMessageSent notifies thread participants. Mentions always get
// a distinct notification; plain messages aggregate into the newest unread
// thread-activity notification by bumping its count.
func (h *Handlers) handleChatMessageSent(ctx context.Context, event *model.DomainEvent) (Result, error) {
	if event.ThreadID == nil {
		return Result{}, fmt.Errorf("event %d has no thread", event.ID)
	}

	var payload chatMessagePayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}
	mentioned := make(map[string]bool, len(payload.MentionedUserIDs))
	for _, userID := range payload.MentionedUserIDs {
		mentioned[userID] = true
	}

	participants, err := h.threads.ListParticipantIDs(ctx, *event.ThreadID)
	if err != nil {
		return Result{}, fmt.Errorf("list thread participants: %w", err)
	}

	senderName := "Someone"
	if event.ActorID != nil {
		if name, err := h.profileName(ctx, *event.ActorID); err == nil {
			senderName = name
		}
	}

	link := ""
	if event.ProjectID != nil {
		link = h.threadLink(*event.ProjectID, *event.ThreadID)
	}
	scope := prefs.ScopeFromEvent(event)
	actor := h.actorID(event)

	var result Result
	for _, userID := range participants {
		if userID == actor {
			continue
		}
		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelInApp) {
			continue
		}

		if mentioned[userID] {
			if err := h.insertNotification(ctx, event, userID,
				fmt.Sprintf("%s mentioned you", senderName), payload.Preview, link,
				model.NotificationPayload{
					Type:     model.NotificationTypeMention,
					ThreadID: event.ThreadID,
				}); err != nil {
				return result, err
			}
			result.Notifications++
			continue
		}

		created, err := h.aggregateThreadActivity(ctx, event, userID, senderName, link)
		if err != nil {
			return result, err
		}
		if created {
			result.Notifications++
		}
	}
	return result, nil
}

// aggregateThreadActivity bumps the count on the user's newest unread
// thread-activity notification for this thread, or inserts one with
// count 1. Returns whether a new row was created.
func (h *Handlers) aggregateThreadActivity(ctx context.Context, event *model.DomainEvent, userID, senderName, link string) (bool, error) {
	existing, err := h.notifications.FindNewestUnreadThreadActivity(ctx, userID, *event.ThreadID)
	if err == nil {
		if err := h.notifications.IncrementCount(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("increment thread activity count: %w", err)
		}
		slog.DebugContext(ctx, "thread activity aggregated",
			"user_id", userID, "notification_id", existing.ID)
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("find unread thread activity: %w", err)
	}

	count := 1
	if err := h.insertNotification(ctx, event, userID,
		"New messages", fmt.Sprintf("%s sent a message", senderName), link,
		model.NotificationPayload{
			Type:     model.NotificationTypeThreadActivity,
			ThreadID: event.ThreadID,
			Count:    &count,
		}); err != nil {
		return false, err
	}
	return true, nil
}

// handleThreadUnreadStale queues an aggregated email for the single user
// named in the payload. No in-app notification; the unread badge already
// covers that surface.
func (h *Handlers) handleThreadUnreadStale(ctx context.Context, event *model.DomainEvent) (Result, error) {
	var payload threadUnreadStalePayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}

	scope := prefs.ScopeFromEvent(event)
	if h.prefs.IsMuted(ctx, payload.UserID, scope, event.EventType, model.ChannelEmail) {
		return Result{}, nil
	}

	var projectName string
	if event.ProjectID != nil {
		name, err := h.projectName(ctx, *event.ProjectID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve project name: %w", err)
		}
		projectName = name
	}

	subject := "Unread messages waiting for you"
	if projectName != "" {
		subject = fmt.Sprintf("Unread messages in %s", projectName)
	}
	queued, err := h.queueEmail(ctx, event, payload.UserID, model.DeliveryTypeAggregated, subject, event.ProjectID, &projectName, map[string]any{
		"unread_count": payload.UnreadCount,
		"thread_id":    event.ThreadID,
		"project_name": projectName,
	})
	if err != nil {
		return Result{}, err
	}
	result := Result{}
	if queued {
		result.Emails = 1
	}
	return result, nil
}

package fanout

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
)

func (h *Handlers) handleDocumentUploaded(ctx context.Context, event *model.DomainEvent) (Result, error) {
	var payload documentUploadedPayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}

	recipients, err := h.resolveRecipients(ctx, event)
	if err != nil {
		return Result{}, err
	}
	notified, err := h.alreadyNotified(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}

	projectName, err := h.projectName(ctx, *event.ProjectID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve project name: %w", err)
	}
	uploaderName := "Someone"
	if event.ActorID != nil {
		if name, err := h.profileName(ctx, *event.ActorID); err == nil {
			uploaderName = name
		}
	}

	title := fmt.Sprintf("New document in %s", projectName)
	body := fmt.Sprintf("%s uploaded %s", uploaderName, payload.FileName)
	link := h.workspaceLink(*event.ProjectID, event.ResourceID)
	scope := prefs.ScopeFromEvent(event)

	var result Result
	for _, userID := range recipients {
		if notified[userID] {
			continue
		}
		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelInApp) {
			continue
		}
		if err := h.insertNotification(ctx, event, userID, title, body, link, model.NotificationPayload{
			Type: model.NotificationTypeDocumentUploaded,
		}); err != nil {
			return result, err
		}
		result.Notifications++

		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelEmail) {
			continue
		}
		queued, err := h.queueEmail(ctx, event, userID, model.DeliveryTypeAggregated, title, event.ProjectID, &projectName, map[string]any{
			"file_name":     payload.FileName,
			"project_name":  projectName,
			"uploader_name": uploaderName,
			"resource_id":   event.ResourceID,
		})
		if err != nil {
			return result, err
		}
		if queued {
			result.Emails++
		}
	}
	return result, nil
}

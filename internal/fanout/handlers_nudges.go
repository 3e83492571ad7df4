package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
)

// handleResumeNudge turns a scheduler-appended nudge event into a
// notification plus an immediate email, after re-verifying that the target
// user still owns the project's org and that this tier was not already
// delivered.
func (h *Handlers) handleResumeNudge(ctx context.Context, event *model.DomainEvent) (Result, error) {
	var payload resumeNudgePayload
	if err := decodePayload(event, &payload); err != nil {
		return Result{}, err
	}
	if event.ProjectID == nil {
		return Result{}, fmt.Errorf("event %d has no project", event.ID)
	}

	project, err := h.projects.GetByID(ctx, *event.ProjectID)
	if err != nil {
		return Result{}, fmt.Errorf("load project: %w", err)
	}
	isOwner, err := h.projects.IsOrgOwner(ctx, project.OwnerOrgID, payload.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("check org ownership: %w", err)
	}
	if !isOwner {
		slog.InfoContext(ctx, "nudge target no longer an org owner, skipping",
			"user_id", payload.UserID)
		return Result{}, nil
	}

	exists, err := h.notifications.ResumeNudgeTierExists(ctx, payload.UserID, project.ID, payload.ResumeKind, payload.Tier)
	if err != nil {
		return Result{}, fmt.Errorf("check existing nudge tier: %w", err)
	}
	if exists {
		return Result{}, nil
	}

	scope := prefs.ScopeFromEvent(event)
	if h.prefs.IsMuted(ctx, payload.UserID, scope, event.EventType, model.ChannelInApp) {
		return Result{}, nil
	}

	kindLabel := "project resume"
	if payload.ResumeKind == model.ResumeKindBorrower {
		kindLabel = "borrower resume"
	}
	title := fmt.Sprintf("Your %s for %s is incomplete", kindLabel, project.Name)
	body := "Pick up where you left off to keep your application moving."
	link := h.workspaceLink(project.ID, nil)

	if err := h.insertNotification(ctx, event, payload.UserID, title, body, link, model.NotificationPayload{
		Type:       model.NotificationTypeResumeNudge,
		ProjectID:  &project.ID,
		ResumeKind: &payload.ResumeKind,
		Tier:       &payload.Tier,
	}); err != nil {
		return Result{}, err
	}
	result := Result{Notifications: 1}

	if h.prefs.IsMuted(ctx, payload.UserID, scope, event.EventType, model.ChannelEmail) {
		return result, nil
	}
	queued, err := h.queueEmail(ctx, event, payload.UserID, model.DeliveryTypeImmediate, title, &project.ID, &project.Name, map[string]any{
		"project_name": project.Name,
		"resume_kind":  payload.ResumeKind,
		"tier":         payload.Tier,
	})
	if err != nil {
		return result, err
	}
	if queued {
		result.Emails++
	}
	return result, nil
}

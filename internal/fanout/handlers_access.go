package fanout

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
)

// handleInviteAccepted tells org owners a new member joined. The new
// member is the actor and is never notified about themselves.
func (h *Handlers) handleInviteAccepted(ctx context.Context, event *model.DomainEvent) (Result, error) {
	if event.OrgID == nil {
		return Result{}, fmt.Errorf("event %d has no org", event.ID)
	}

	owners, err := h.projects.ListOrgOwnerIDs(ctx, *event.OrgID)
	if err != nil {
		return Result{}, fmt.Errorf("list org owners: %w", err)
	}
	notified, err := h.alreadyNotified(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}

	memberName := "A new member"
	if event.ActorID != nil {
		if name, err := h.profileName(ctx, *event.ActorID); err == nil {
			memberName = name
		}
	}

	title := fmt.Sprintf("%s joined your organization", memberName)
	body := "They can now be added to projects."
	link := h.dashboardLink()
	scope := prefs.ScopeFromEvent(event)
	actor := h.actorID(event)

	var result Result
	for _, userID := range owners {
		if userID == actor || notified[userID] {
			continue
		}
		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelInApp) {
			continue
		}
		if err := h.insertNotification(ctx, event, userID, title, body, link, model.NotificationPayload{
			Type: model.NotificationTypeInviteAccepted,
		}); err != nil {
			return result, err
		}
		result.Notifications++

		if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelEmail) {
			continue
		}
		queued, err := h.queueEmail(ctx, event, userID, model.DeliveryTypeImmediate, title, nil, nil, map[string]any{
			"member_name": memberName,
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

func (h *Handlers) handleProjectAccessGranted(ctx context.Context, event *model.DomainEvent) (Result, error) {
	payload, project, err := h.loadAccessChange(ctx, event)
	if err != nil {
		return Result{}, err
	}

	title := fmt.Sprintf("You now have access to %s", project.Name)
	return h.notifyAccessChange(ctx, event, payload.UserID, title,
		"Open the project to get started.", h.workspaceLink(project.ID, nil),
		model.NotificationTypeAccessGranted, true, project)
}

// handleProjectAccessChanged always notifies in-app; the email goes out
// only for a view-to-edit upgrade.
func (h *Handlers) handleProjectAccessChanged(ctx context.Context, event *model.DomainEvent) (Result, error) {
	payload, project, err := h.loadAccessChange(ctx, event)
	if err != nil {
		return Result{}, err
	}

	upgrade := payload.OldLevel == model.PermissionView && payload.NewLevel == model.PermissionEdit
	title := fmt.Sprintf("Your access to %s changed", project.Name)
	if upgrade {
		title = fmt.Sprintf("You can now edit %s", project.Name)
	}

	return h.notifyAccessChange(ctx, event, payload.UserID, title,
		fmt.Sprintf("Your permission is now %s.", payload.NewLevel),
		h.workspaceLink(project.ID, nil),
		model.NotificationTypeAccessChanged, upgrade, project)
}

// handleProjectAccessRevoked leaves an in-app notice pointing at the
// dashboard. The project is no longer reachable, so no project link and
// never an email.
func (h *Handlers) handleProjectAccessRevoked(ctx context.Context, event *model.DomainEvent) (Result, error) {
	payload, project, err := h.loadAccessChange(ctx, event)
	if err != nil {
		return Result{}, err
	}

	return h.notifyAccessChange(ctx, event, payload.UserID,
		fmt.Sprintf("Your access to %s was removed", project.Name),
		"Contact the project owner if you believe this is a mistake.",
		h.dashboardLink(),
		model.NotificationTypeAccessRevoked, false, project)
}

func (h *Handlers) handleDocumentPermissionGranted(ctx context.Context, event *model.DomainEvent) (Result, error) {
	payload, project, err := h.loadAccessChange(ctx, event)
	if err != nil {
		return Result{}, err
	}

	docName := "a document"
	if event.ResourceID != nil {
		docName = h.resourceName(ctx, *event.ResourceID)
	}
	return h.notifyAccessChange(ctx, event, payload.UserID,
		fmt.Sprintf("You were given access to %s", docName),
		fmt.Sprintf("In %s.", project.Name),
		h.workspaceLink(project.ID, event.ResourceID),
		model.NotificationTypeDocumentPermission, false, project)
}

// handleDocumentPermissionChanged notifies only on a view-to-edit upgrade;
// every other transition is silent.
func (h *Handlers) handleDocumentPermissionChanged(ctx context.Context, event *model.DomainEvent) (Result, error) {
	payload, project, err := h.loadAccessChange(ctx, event)
	if err != nil {
		return Result{}, err
	}
	if payload.OldLevel != model.PermissionView || payload.NewLevel != model.PermissionEdit {
		return Result{}, nil
	}

	docName := "a document"
	if event.ResourceID != nil {
		docName = h.resourceName(ctx, *event.ResourceID)
	}
	return h.notifyAccessChange(ctx, event, payload.UserID,
		fmt.Sprintf("You can now edit %s", docName),
		fmt.Sprintf("In %s.", project.Name),
		h.workspaceLink(project.ID, event.ResourceID),
		model.NotificationTypeDocumentPermission, false, project)
}

func (h *Handlers) loadAccessChange(ctx context.Context, event *model.DomainEvent) (*accessChangePayload, *model.Project, error) {
	var payload accessChangePayload
	if err := decodePayload(event, &payload); err != nil {
		return nil, nil, err
	}
	if event.ProjectID == nil {
		return nil, nil, fmt.Errorf("event %d has no project", event.ID)
	}
	project, err := h.projects.GetByID(ctx, *event.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("load project: %w", err)
	}
	return &payload, project, nil
}

func (h *Handlers) notifyAccessChange(ctx context.Context, event *model.DomainEvent, userID, title, body, link string, notifType model.NotificationType, withEmail bool, project *model.Project) (Result, error) {
	notified, err := h.alreadyNotified(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}
	if notified[userID] {
		return Result{}, nil
	}

	scope := prefs.ScopeFromEvent(event)
	if h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelInApp) {
		return Result{}, nil
	}

	if err := h.insertNotification(ctx, event, userID, title, body, link, model.NotificationPayload{
		Type: notifType,
	}); err != nil {
		return Result{}, err
	}
	result := Result{Notifications: 1}

	if !withEmail || h.prefs.IsMuted(ctx, userID, scope, event.EventType, model.ChannelEmail) {
		return result, nil
	}
	queued, err := h.queueEmail(ctx, event, userID, model.DeliveryTypeImmediate, title, &project.ID, &project.Name, map[string]any{
		"project_name": project.Name,
	})
	if err != nil {
		return result, err
	}
	if queued {
		result.Emails++
	}
	return result, nil
}

func (h *Handlers) resourceName(ctx context.Context, resourceID string) string {
	name, err := h.names.Lookup(ctx, "resource_name:"+resourceID, func(ctx context.Context) (string, error) {
		resource, err := h.resources.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		return resource.Name, nil
	})
	if err != nil || name == "" {
		return "a document"
	}
	return name
}

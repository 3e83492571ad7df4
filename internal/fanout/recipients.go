package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/internal/model"
)

// CollectCandidates returns the union of the project's access grants and
// the owning org's owners. The org comes from the event's resource when
// present, else from the project's owner org. The actor is not excluded
// here; callers filter it out of the final recipient set.
func (h *Handlers) CollectCandidates(ctx context.Context, event *model.DomainEvent) ([]string, error) {
	if event.ProjectID == nil {
		return nil, fmt.Errorf("event %d has no project", event.ID)
	}

	seen := make(map[string]bool)
	var candidates []string
	add := func(userID string) {
		if !seen[userID] {
			seen[userID] = true
			candidates = append(candidates, userID)
		}
	}

	grantees, err := h.projects.ListGrantUserIDs(ctx, *event.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list project grants: %w", err)
	}
	for _, userID := range grantees {
		add(userID)
	}

	orgID := event.OrgID
	if orgID == nil {
		project, err := h.projects.GetByID(ctx, *event.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("load project: %w", err)
		}
		orgID = &project.OwnerOrgID
	}

	owners, err := h.projects.ListOrgOwnerIDs(ctx, *orgID)
	if err != nil {
		return nil, fmt.Errorf("list org owners: %w", err)
	}
	for _, userID := range owners {
		add(userID)
	}

	return candidates, nil
}

// FilterByResourceAccess keeps candidates whose effective permission on the
// resource is view or above. An empty resource ID passes everyone through.
// A per-user resolution error drops only that user.
func (h *Handlers) FilterByResourceAccess(ctx context.Context, candidates []string, resourceID string) []string {
	if resourceID == "" {
		return candidates
	}

	var allowed []string
	for _, userID := range candidates {
		ok, err := h.access.HasViewAccess(ctx, userID, resourceID)
		if err != nil {
			slog.WarnContext(ctx, "resource access check failed, dropping candidate",
				"user_id", userID, "resource_id", resourceID, "error", err)
			continue
		}
		if ok {
			allowed = append(allowed, userID)
		}
	}
	return allowed
}

// resolveRecipients is the common pipeline: candidates, resource filter,
// actor exclusion.
func (h *Handlers) resolveRecipients(ctx context.Context, event *model.DomainEvent) ([]string, error) {
	candidates, err := h.CollectCandidates(ctx, event)
	if err != nil {
		return nil, err
	}

	resourceID := ""
	if event.ResourceID != nil {
		resourceID = *event.ResourceID
	}
	candidates = h.FilterByResourceAccess(ctx, candidates, resourceID)

	actor := h.actorID(event)
	var recipients []string
	for _, userID := range candidates {
		if userID != actor {
			recipients = append(recipients, userID)
		}
	}
	return recipients, nil
}

package access

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
)

// Snapshot holds a user's effective permission on every resource of one
// project, resolved from two batched queries. Batch callers (the daily
// digest, the permission-diff engine) use this instead of per-resource
// round trips.
type Snapshot struct {
	UserID    string
	ProjectID string
	levels    map[string]model.PermissionLevel
}

// BuildSnapshot loads the project's resource tree and the user's explicit
// permission rows, then resolves every effective level in memory.
func (r *Resolver) BuildSnapshot(ctx context.Context, userID, projectID string) (*Snapshot, error) {
	resources, err := r.resources.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list resources for project %s: %w", projectID, err)
	}

	ids := make([]string, len(resources))
	byID := make(map[string]model.Resource, len(resources))
	for i, res := range resources {
		ids[i] = res.ID
		byID[res.ID] = res
	}

	var explicit map[string]model.PermissionLevel
	if len(ids) > 0 {
		perms, err := r.permissions.ListForUser(ctx, userID, ids)
		if err != nil {
			return nil, fmt.Errorf("list permissions for user %s: %w", userID, err)
		}
		explicit = make(map[string]model.PermissionLevel, len(perms))
		for _, p := range perms {
			explicit[p.ResourceID] = p.Level
		}
	}

	levels := make(map[string]model.PermissionLevel, len(resources))
	for _, res := range resources {
		levels[res.ID] = resolveInMemory(res, byID, explicit)
	}

	return &Snapshot{UserID: userID, ProjectID: projectID, levels: levels}, nil
}

// Level returns the effective level, defaulting to none for unknown IDs.
func (s *Snapshot) Level(resourceID string) model.PermissionLevel {
	if level, ok := s.levels[resourceID]; ok {
		return level
	}
	return model.PermissionNone
}

func (s *Snapshot) HasView(resourceID string) bool {
	return s.Level(resourceID).AtLeastView()
}

// FileLevels returns effective levels for FILE resources only, the shape
// the permission-diff engine compares.
func (s *Snapshot) FileLevels(resources []model.Resource) map[string]model.PermissionLevel {
	out := make(map[string]model.PermissionLevel)
	for _, res := range resources {
		if res.ResourceType == model.ResourceTypeFile {
			out[res.ID] = s.Level(res.ID)
		}
	}
	return out
}

func resolveInMemory(res model.Resource, byID map[string]model.Resource, explicit map[string]model.PermissionLevel) model.PermissionLevel {
	if level, ok := explicit[res.ID]; ok {
		return level
	}

	visited := map[string]bool{res.ID: true}
	current := res
	for current.ParentID != nil {
		parentID := *current.ParentID
		if visited[parentID] {
			return model.PermissionNone
		}
		visited[parentID] = true

		parent, ok := byID[parentID]
		if !ok {
			return model.PermissionNone
		}
		if parent.ResourceType.IsDocsRoot() {
			if level, ok := explicit[parent.ID]; ok {
				return level
			}
			return model.PermissionNone
		}
		current = parent
	}
	return model.PermissionNone
}

// Package access resolves a user's effective permission on a document
// resource. An explicit permission row wins, including an explicit none
// which blocks inheritance; otherwise the level is inherited from the
// nearest docs-root ancestor the user holds a grant on.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

type Resolver struct {
	resources   store.ResourceStore
	permissions store.PermissionStore
}

func NewResolver(resources store.ResourceStore, permissions store.PermissionStore) *Resolver {
	return &Resolver{resources: resources, permissions: permissions}
}

// EffectivePermission resolves the level a user holds on a resource.
func (r *Resolver) EffectivePermission(ctx context.Context, userID, resourceID string) (model.PermissionLevel, error) {
	resource, err := r.resources.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PermissionNone, nil
		}
		return model.PermissionNone, fmt.Errorf("load resource %s: %w", resourceID, err)
	}

	perm, err := r.permissions.Get(ctx, resourceID, userID)
	if err == nil {
		// Explicit rows always win; an explicit none blocks inheritance.
		return perm.Level, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.PermissionNone, fmt.Errorf("load permission: %w", err)
	}

	root, err := r.governingRoot(ctx, resource)
	if err != nil {
		return model.PermissionNone, err
	}
	if root == nil {
		return model.PermissionNone, nil
	}

	rootPerm, err := r.permissions.Get(ctx, root.ID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PermissionNone, nil
		}
		return model.PermissionNone, fmt.Errorf("load root permission: %w", err)
	}
	return rootPerm.Level, nil
}

// HasViewAccess reports whether the user may see the resource.
func (r *Resolver) HasViewAccess(ctx context.Context, userID, resourceID string) (bool, error) {
	level, err := r.EffectivePermission(ctx, userID, resourceID)
	if err != nil {
		return false, err
	}
	return level.AtLeastView(), nil
}

// governingRoot walks parent links until it reaches a docs-root node. The
// visited set guards against cyclic parent data.
func (r *Resolver) governingRoot(ctx context.Context, resource *model.Resource) (*model.Resource, error) {
	visited := map[string]bool{resource.ID: true}
	current := resource

	for current.ParentID != nil {
		parentID := *current.ParentID
		if visited[parentID] {
			slog.WarnContext(ctx, "cycle detected in resource tree", "resource_id", parentID)
			return nil, nil
		}
		visited[parentID] = true

		parent, err := r.resources.GetByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("load parent resource %s: %w", parentID, err)
		}
		if parent.ResourceType.IsDocsRoot() {
			return parent, nil
		}
		current = parent
	}
	return nil, nil
}

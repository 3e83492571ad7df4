// Package permdiff applies bulk (org, user) permission mutations and
// emits domain events for the differences. Snapshots are taken before and
// after the mutation; only grants and upgrades produce events, so
// downgrades and revocations stay silent here.
package permdiff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/core/db"
	"crewdeck.app/herald/internal/access"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

type GrantAction string

const (
	ActionGrant  GrantAction = "grant"
	ActionRevoke GrantAction = "revoke"
)

// ProjectGrantChange mutates a user's project membership. Level applies to
// the project's docs root when granting.
type ProjectGrantChange struct {
	ProjectID string                `json:"project_id"`
	Action    GrantAction           `json:"action"`
	Level     model.PermissionLevel `json:"level,omitempty"`
}

// DocumentPermissionChange mutates one explicit FILE permission. Remove
// deletes the row so the level is inherited again.
type DocumentPermissionChange struct {
	ResourceID string                `json:"resource_id"`
	ProjectID  string                `json:"project_id"`
	Level      model.PermissionLevel `json:"level,omitempty"`
	Remove     bool                  `json:"remove,omitempty"`
}

// Change is one bulk permission mutation for a single user in an org.
type Change struct {
	OrgID               string                     `json:"org_id"`
	UserID              string                     `json:"user_id"`
	ActorID             string                     `json:"actor_id"`
	ProjectGrants       []ProjectGrantChange       `json:"project_grants,omitempty"`
	DocumentPermissions []DocumentPermissionChange `json:"document_permissions,omitempty"`
}

// Outcome summarizes the diff after a mutation was applied.
type Outcome struct {
	EventsEmitted int `json:"events_emitted"`
	Granted       int `json:"granted"`
	Upgraded      int `json:"upgraded"`
	Downgraded    int `json:"downgraded"`
	Revoked       int `json:"revoked"`
}

type Engine struct {
	pool   *pgxpool.Pool
	stores *store.Stores
	now    func() time.Time
}

func NewEngine(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool, stores: store.NewStores(pool), now: time.Now}
}

// state captures the user's effective levels at one point in time.
type state struct {
	projectLevels map[string]model.PermissionLevel // project -> level, absent = no access
	docLevels     map[string]model.PermissionLevel // FILE resource -> effective level
}

// Apply snapshots, mutates inside one transaction, re-snapshots, and
// emits events for grants and upgrades.
func (e *Engine) Apply(ctx context.Context, change *Change) (*Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "herald.permdiff.engine",
		UserID:    logger.Ptr(change.UserID),
	})

	projectIDs := e.affectedProjects(change)
	if len(projectIDs) == 0 {
		return &Outcome{}, nil
	}

	before, err := e.snapshot(ctx, change.UserID, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("before snapshot: %w", err)
	}

	if err := db.WithTx(ctx, e.pool, func(tx pgx.Tx) error {
		return e.applyMutation(ctx, store.NewStores(tx), change)
	}); err != nil {
		return nil, fmt.Errorf("apply mutation: %w", err)
	}

	after, err := e.snapshot(ctx, change.UserID, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("after snapshot: %w", err)
	}

	return e.emitDiff(ctx, change, before, after)
}

func (e *Engine) affectedProjects(change *Change) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, g := range change.ProjectGrants {
		add(g.ProjectID)
	}
	for _, d := range change.DocumentPermissions {
		add(d.ProjectID)
	}
	return ids
}

// snapshot resolves the user's project-level and document-level access
// across the affected projects. Project level comes from the docs-root
// permission and defaults to view when a grant exists; document levels
// come from the in-memory inheritance walk.
func (e *Engine) snapshot(ctx context.Context, userID string, projectIDs []string) (*state, error) {
	st := &state{
		projectLevels: make(map[string]model.PermissionLevel),
		docLevels:     make(map[string]model.PermissionLevel),
	}
	resolver := access.NewResolver(e.stores.Resources(), e.stores.Permissions())

	for _, projectID := range projectIDs {
		grantees, err := e.stores.Projects().ListGrantUserIDs(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("list grants for project %s: %w", projectID, err)
		}
		hasGrant := false
		for _, g := range grantees {
			if g == userID {
				hasGrant = true
				break
			}
		}
		if hasGrant {
			st.projectLevels[projectID] = e.projectLevel(ctx, userID, projectID)
		}

		snap, err := resolver.BuildSnapshot(ctx, userID, projectID)
		if err != nil {
			return nil, err
		}
		resources, err := e.stores.Resources().ListByProject(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("list resources for project %s: %w", projectID, err)
		}
		for resourceID, level := range snap.FileLevels(resources) {
			st.docLevels[resourceID] = level
		}
	}
	return st, nil
}

func (e *Engine) projectLevel(ctx context.Context, userID, projectID string) model.PermissionLevel {
	root, err := e.stores.Resources().GetDocsRoot(ctx, projectID, model.ResourceTypeProjectDocsRoot)
	if err != nil {
		return model.PermissionView
	}
	perm, err := e.stores.Permissions().Get(ctx, root.ID, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "project level lookup failed, defaulting to view",
				"project_id", projectID, "error", err)
		}
		return model.PermissionView
	}
	return perm.Level
}

func (e *Engine) applyMutation(ctx context.Context, stores *store.Stores, change *Change) error {
	for _, g := range change.ProjectGrants {
		switch g.Action {
		case ActionGrant:
			if err := stores.Projects().UpsertGrant(ctx, &model.ProjectAccessGrant{
				ProjectID: g.ProjectID,
				UserID:    change.UserID,
				GrantedBy: &change.ActorID,
			}); err != nil {
				return fmt.Errorf("upsert grant on project %s: %w", g.ProjectID, err)
			}
			if g.Level != "" {
				if err := e.setRootPermission(ctx, stores, g.ProjectID, change.UserID, g.Level); err != nil {
					return err
				}
			}
		case ActionRevoke:
			if err := stores.Projects().DeleteGrant(ctx, g.ProjectID, change.UserID); err != nil {
				return fmt.Errorf("delete grant on project %s: %w", g.ProjectID, err)
			}
		default:
			return fmt.Errorf("unknown grant action %q", g.Action)
		}
	}

	for _, d := range change.DocumentPermissions {
		if d.Remove {
			if err := stores.Permissions().Delete(ctx, d.ResourceID, change.UserID); err != nil {
				return fmt.Errorf("delete permission on %s: %w", d.ResourceID, err)
			}
			continue
		}
		if err := stores.Permissions().Upsert(ctx, &model.Permission{
			ResourceID: d.ResourceID,
			UserID:     change.UserID,
			Level:      d.Level,
		}); err != nil {
			return fmt.Errorf("upsert permission on %s: %w", d.ResourceID, err)
		}
	}
	return nil
}

func (e *Engine) setRootPermission(ctx context.Context, stores *store.Stores, projectID, userID string, level model.PermissionLevel) error {
	root, err := stores.Resources().GetDocsRoot(ctx, projectID, model.ResourceTypeProjectDocsRoot)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load docs root for project %s: %w", projectID, err)
	}
	return stores.Permissions().Upsert(ctx, &model.Permission{
		ResourceID: root.ID,
		UserID:     userID,
		Level:      level,
	})
}

// diffItem is one grant or upgrade the engine will announce as a domain
// event.
type diffItem struct {
	eventType  model.EventType
	projectID  string
	resourceID *string
	oldLevel   model.PermissionLevel
	newLevel   model.PermissionLevel
}

// diffStates compares the snapshots. Grants and upgrades produce items;
// downgrades and revocations are counted but announce nothing.
func diffStates(before, after *state, docProjects map[string]string) (*Outcome, []diffItem) {
	outcome := &Outcome{}
	var items []diffItem

	for projectID, newLevel := range after.projectLevels {
		oldLevel, had := before.projectLevels[projectID]
		switch {
		case !had || oldLevel == model.PermissionNone:
			if newLevel.AtLeastView() {
				outcome.Granted++
				items = append(items, diffItem{
					eventType: model.EventTypeProjectAccessGranted,
					projectID: projectID, oldLevel: oldLevel, newLevel: newLevel,
				})
			}
		case oldLevel == model.PermissionView && newLevel == model.PermissionEdit:
			outcome.Upgraded++
			items = append(items, diffItem{
				eventType: model.EventTypeProjectAccessChanged,
				projectID: projectID, oldLevel: oldLevel, newLevel: newLevel,
			})
		case oldLevel == model.PermissionEdit && newLevel == model.PermissionView:
			outcome.Downgraded++
		}
	}
	for projectID, oldLevel := range before.projectLevels {
		if _, still := after.projectLevels[projectID]; !still && oldLevel.AtLeastView() {
			outcome.Revoked++
		}
	}

	for resourceID, newLevel := range after.docLevels {
		oldLevel := before.docLevels[resourceID]
		if oldLevel == "" {
			oldLevel = model.PermissionNone
		}
		switch {
		case oldLevel == model.PermissionNone && newLevel.AtLeastView():
			outcome.Granted++
			items = append(items, diffItem{
				eventType: model.EventTypeDocumentPermissionGranted,
				projectID: docProjects[resourceID], resourceID: &resourceID,
				oldLevel: oldLevel, newLevel: newLevel,
			})
		case oldLevel == model.PermissionView && newLevel == model.PermissionEdit:
			outcome.Upgraded++
			items = append(items, diffItem{
				eventType: model.EventTypeDocumentPermissionChanged,
				projectID: docProjects[resourceID], resourceID: &resourceID,
				oldLevel: oldLevel, newLevel: newLevel,
			})
		case oldLevel == model.PermissionEdit && newLevel == model.PermissionView:
			outcome.Downgraded++
		case oldLevel.AtLeastView() && newLevel == model.PermissionNone:
			outcome.Revoked++
		}
	}

	return outcome, items
}

// emitDiff compares the snapshots and appends events for granted and
// upgraded access.
func (e *Engine) emitDiff(ctx context.Context, change *Change, before, after *state) (*Outcome, error) {
	docProjects := make(map[string]string, len(change.DocumentPermissions))
	for _, d := range change.DocumentPermissions {
		docProjects[d.ResourceID] = d.ProjectID
	}

	outcome, items := diffStates(before, after, docProjects)
	for _, item := range items {
		if err := e.appendEvent(ctx, change, item.eventType, item.projectID, item.resourceID, item.oldLevel, item.newLevel); err != nil {
			return outcome, err
		}
		outcome.EventsEmitted++
	}

	slog.InfoContext(ctx, "permission diff applied",
		"granted", outcome.Granted, "upgraded", outcome.Upgraded,
		"downgraded", outcome.Downgraded, "revoked", outcome.Revoked,
		"events_emitted", outcome.EventsEmitted)
	return outcome, nil
}

func (e *Engine) appendEvent(ctx context.Context, change *Change, eventType model.EventType, projectID string, resourceID *string, oldLevel, newLevel model.PermissionLevel) error {
	payload, _ := json.Marshal(map[string]any{
		"user_id":   change.UserID,
		"old_level": oldLevel,
		"new_level": newLevel,
	})
	event := &model.DomainEvent{
		ID:         id.New(),
		EventType:  eventType,
		ActorID:    &change.ActorID,
		ProjectID:  &projectID,
		OrgID:      &change.OrgID,
		ResourceID: resourceID,
		OccurredAt: e.now(),
		Payload:    payload,
	}
	if err := e.stores.Events().Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

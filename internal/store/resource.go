package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type resourceStore struct {
	db DBTX
}

func newResourceStore(db DBTX) ResourceStore {
	return &resourceStore{db: db}
}

func (s *resourceStore) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, resource_type, project_id, org_id, parent_id
		FROM resources WHERE id = $1`, id)
	return scanResource(row)
}

func (s *resourceStore) ListByProject(ctx context.Context, projectID string) ([]model.Resource, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, resource_type, project_id, org_id, parent_id
		FROM resources WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		var r model.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.ResourceType, &r.ProjectID, &r.OrgID, &r.ParentID); err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *resourceStore) GetDocsRoot(ctx context.Context, projectID string, rootType model.ResourceType) (*model.Resource, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, resource_type, project_id, org_id, parent_id
		FROM resources WHERE project_id = $1 AND resource_type = $2`, projectID, rootType)
	return scanResource(row)
}

func scanResource(row pgx.Row) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.Name, &r.ResourceType, &r.ProjectID, &r.OrgID, &r.ParentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

type permissionStore struct {
	db DBTX
}

func newPermissionStore(db DBTX) PermissionStore {
	return &permissionStore{db: db}
}

func (s *permissionStore) Get(ctx context.Context, resourceID, userID string) (*model.Permission, error) {
	row := s.db.QueryRow(ctx, `
		SELECT resource_id, user_id, level
		FROM permissions WHERE resource_id = $1 AND user_id = $2`, resourceID, userID)
	var p model.Permission
	if err := row.Scan(&p.ResourceID, &p.UserID, &p.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *permissionStore) ListForUser(ctx context.Context, userID string, resourceIDs []string) ([]model.Permission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT resource_id, user_id, level
		FROM permissions WHERE user_id = $1 AND resource_id = ANY($2)`, userID, resourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ResourceID, &p.UserID, &p.Level); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *permissionStore) Upsert(ctx context.Context, p *model.Permission) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO permissions (resource_id, user_id, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, user_id) DO UPDATE SET level = EXCLUDED.level`,
		p.ResourceID, p.UserID, p.Level)
	return err
}

func (s *permissionStore) Delete(ctx context.Context, resourceID, userID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM permissions WHERE resource_id = $1 AND user_id = $2`, resourceID, userID)
	return err
}

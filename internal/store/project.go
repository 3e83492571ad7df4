package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type projectStore struct {
	db DBTX
}

func newProjectStore(db DBTX) ProjectStore {
	return &projectStore{db: db}
}

func (s *projectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, owner_org_id, created_at FROM projects WHERE id = $1`, id)
	var p model.Project
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerOrgID, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *projectStore) GetByIDs(ctx context.Context, ids []string) (map[string]model.Project, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, owner_org_id, created_at FROM projects WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make(map[string]model.Project, len(ids))
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerOrgID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects[p.ID] = p
	}
	return projects, rows.Err()
}

func (s *projectStore) List(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, owner_org_id, created_at FROM projects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (s *projectStore) ListByOwnerOrg(ctx context.Context, orgID string) ([]model.Project, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, owner_org_id, created_at FROM projects WHERE owner_org_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (s *projectStore) ListGrantUserIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM project_access_grants WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *projectStore) ListGrantUserIDsBatch(ctx context.Context, projectIDs []string) (map[string][]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT project_id, user_id FROM project_access_grants WHERE project_id = ANY($1)`, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStringPairs(rows)
}

func (s *projectStore) UpsertGrant(ctx context.Context, grant *model.ProjectAccessGrant) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO project_access_grants (project_id, user_id, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET granted_by = EXCLUDED.granted_by`,
		grant.ProjectID, grant.UserID, grant.GrantedBy)
	return err
}

func (s *projectStore) DeleteGrant(ctx context.Context, projectID, userID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM project_access_grants WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	return err
}

func (s *projectStore) ListOrgOwnerIDs(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM org_members WHERE org_id = $1 AND role = 'owner'`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *projectStore) ListOrgOwnerIDsBatch(ctx context.Context, orgIDs []string) (map[string][]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT org_id, user_id FROM org_members WHERE org_id = ANY($1) AND role = 'owner'`, orgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStringPairs(rows)
}

func (s *projectStore) IsOrgOwner(ctx context.Context, orgID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2 AND role = 'owner'
		)`, orgID, userID).Scan(&exists)
	return exists, err
}

func scanProjects(rows pgx.Rows) ([]model.Project, error) {
	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerOrgID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanStringPairs(rows pgx.Rows) (map[string][]string, error) {
	out := make(map[string][]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = append(out[key], value)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type resumeStore struct {
	db DBTX
}

func newResumeStore(db DBTX) ResumeStore {
	return &resumeStore{db: db}
}

// ListActivity returns the project's edit activity keyed by user. Nudge
// timers are per (project, user); one owner's edits never speak for
// another's.
func (s *resumeStore) ListActivity(ctx context.Context, projectID string) (map[string]model.ResumeActivity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT project_id, user_id, last_project_resume_edit_at, last_borrower_resume_edit_at
		FROM resume_workspace_activity
		WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.ResumeActivity)
	for rows.Next() {
		var a model.ResumeActivity
		if err := rows.Scan(&a.ProjectID, &a.UserID, &a.LastProjectResumeEditAt, &a.LastBorrowerResumeEditAt); err != nil {
			return nil, err
		}
		out[a.UserID] = a
	}
	return out, rows.Err()
}

func (s *resumeStore) LatestVersion(ctx context.Context, projectID string, kind model.ResumeKind) (*model.ResumeVersion, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, project_id, resume_kind, completeness_percent, created_at
		FROM resume_versions
		WHERE project_id = $1 AND resume_kind = $2
		ORDER BY created_at DESC
		LIMIT 1`, projectID, kind)

	var v model.ResumeVersion
	err := row.Scan(&v.ID, &v.ProjectID, &v.ResumeKind, &v.CompletenessPercent, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

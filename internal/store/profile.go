package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"crewdeck.app/herald/internal/model"
)

type profileStore struct {
	db DBTX
}

func newProfileStore(db DBTX) ProfileStore {
	return &profileStore{db: db}
}

func (s *profileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRow(ctx, `SELECT id, full_name, email FROM profiles WHERE id = $1`, id)
	var p model.Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *profileStore) GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	rows, err := s.db.Query(ctx, `SELECT id, full_name, email FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[string]model.Profile, len(ids))
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

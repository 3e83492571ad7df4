package store

import (
	"context"

	"crewdeck.app/herald/internal/model"
)

type preferenceStore struct {
	db DBTX
}

func newPreferenceStore(db DBTX) PreferenceStore {
	return &preferenceStore{db: db}
}

func (s *preferenceStore) ListForUser(ctx context.Context, userID string) ([]model.NotificationPreference, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, scope_type, scope_id, event_type, channel, status
		FROM notification_preferences
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []model.NotificationPreference
	for rows.Next() {
		var p model.NotificationPreference
		if err := rows.Scan(&p.ID, &p.UserID, &p.ScopeType, &p.ScopeID, &p.EventType, &p.Channel, &p.Status); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// UsersForDailyDigest returns every user with an email address who either
// opted into the email digest explicitly or has no email-channel
// preferences at all (the default cohort).
func (s *preferenceStore) UsersForDailyDigest(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.full_name, p.email
		FROM profiles p
		WHERE p.email IS NOT NULL
		  AND (
			EXISTS (
				SELECT 1 FROM notification_preferences np
				WHERE np.user_id = p.id
				  AND np.channel IN ('email', '*')
				  AND np.status = 'digest'
			)
			OR NOT EXISTS (
				SELECT 1 FROM notification_preferences np
				WHERE np.user_id = p.id
				  AND np.channel IN ('email', '*')
			)
		  )`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

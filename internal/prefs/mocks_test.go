package prefs_test

import (
	"context"

	"crewdeck.app/herald/internal/model"
)

type mockPreferenceStore struct {
	listForUserFn         func(ctx context.Context, userID string) ([]model.NotificationPreference, error)
	usersForDailyDigestFn func(ctx context.Context) ([]model.Profile, error)
}

func (m *mockPreferenceStore) ListForUser(ctx context.Context, userID string) ([]model.NotificationPreference, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPreferenceStore) UsersForDailyDigest(ctx context.Context) ([]model.Profile, error) {
	if m.usersForDailyDigestFn != nil {
		return m.usersForDailyDigestFn(ctx)
	}
	return nil, nil
}

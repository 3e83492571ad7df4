package handler_test

import (
	"context"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/permdiff"
)

type mockEventAdminStore struct {
	listFailedFn func(ctx context.Context, limit int32) ([]model.ProcessingRecord, error)
	deleteFn     func(ctx context.Context, eventID int64) error
	deleted      []int64
}

func (m *mockEventAdminStore) ListFailed(ctx context.Context, limit int32) ([]model.ProcessingRecord, error) {
	if m.listFailedFn != nil {
		return m.listFailedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockEventAdminStore) DeleteProcessingRecord(ctx context.Context, eventID int64) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, eventID); err != nil {
			return err
		}
	}
	m.deleted = append(m.deleted, eventID)
	return nil
}

type mockApplier struct {
	applyFn func(ctx context.Context, change *permdiff.Change) (*permdiff.Outcome, error)
	applied []permdiff.Change
}

func (m *mockApplier) Apply(ctx context.Context, change *permdiff.Change) (*permdiff.Outcome, error) {
	m.applied = append(m.applied, *change)
	if m.applyFn != nil {
		return m.applyFn(ctx, change)
	}
	return &permdiff.Outcome{}, nil
}

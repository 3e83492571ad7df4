package mailer_test

import (
	"context"

	"crewdeck.app/herald/internal/model"
)

type mockEmailStore struct {
	enqueueFn     func(ctx context.Context, e *model.PendingEmail) (bool, error)
	listPendingFn func(ctx context.Context, delivery model.DeliveryType, limit int32) ([]model.PendingEmail, error)
	claimFn       func(ctx context.Context, id int64) (bool, error)
	markSentFn    func(ctx context.Context, id int64) error
	markFailedFn  func(ctx context.Context, id int64) error
	sentIDs       []int64
	failedIDs     []int64
}

func (m *mockEmailStore) Enqueue(ctx context.Context, e *model.PendingEmail) (bool, error) {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, e)
	}
	return true, nil
}

func (m *mockEmailStore) ListPending(ctx context.Context, delivery model.DeliveryType, limit int32) ([]model.PendingEmail, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx, delivery, limit)
	}
	return nil, nil
}

func (m *mockEmailStore) Claim(ctx context.Context, id int64) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, id)
	}
	return true, nil
}

func (m *mockEmailStore) MarkSent(ctx context.Context, id int64) error {
	m.sentIDs = append(m.sentIDs, id)
	if m.markSentFn != nil {
		return m.markSentFn(ctx, id)
	}
	return nil
}

func (m *mockEmailStore) MarkFailed(ctx context.Context, id int64) error {
	m.failedIDs = append(m.failedIDs, id)
	if m.markFailedFn != nil {
		return m.markFailedFn(ctx, id)
	}
	return nil
}

type mockProfileStore struct {
	getByIDFn  func(ctx context.Context, id string) (*model.Profile, error)
	getByIDsFn func(ctx context.Context, ids []string) (map[string]model.Profile, error)
}

func (m *mockProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileStore) GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

type sentEmail struct {
	to        string
	subject   string
	html      string
	text      string
	emailType string
}

type mockSender struct {
	sendFn func(ctx context.Context, to, subject, html, text, emailType string) error
	sent   []sentEmail
}

func (m *mockSender) Send(ctx context.Context, to, subject, html, text, emailType string) error {
	m.sent = append(m.sent, sentEmail{to, subject, html, text, emailType})
	if m.sendFn != nil {
		return m.sendFn(ctx, to, subject, html, text, emailType)
	}
	return nil
}

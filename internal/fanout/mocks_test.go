package fanout_test

import (
	"context"
	"time"

	"crewdeck.app/herald/internal/fanout"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

type mockEventStore struct {
	listUnclaimedFn func(ctx context.Context, limit int32) ([]model.DomainEvent, error)
	claimFn         func(ctx context.Context, eventID int64) (bool, error)
	completedIDs    []int64
	failedIDs       []int64
	failMessages    []string
}

func (m *mockEventStore) Append(_ context.Context, _ *model.DomainEvent) error { return nil }

func (m *mockEventStore) GetByID(_ context.Context, _ int64) (*model.DomainEvent, error) {
	return nil, store.ErrNotFound
}

func (m *mockEventStore) ListUnclaimed(ctx context.Context, limit int32) ([]model.DomainEvent, error) {
	if m.listUnclaimedFn != nil {
		return m.listUnclaimedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockEventStore) ListOccurredBetween(_ context.Context, _, _ time.Time, _ []model.EventType) ([]model.DomainEvent, error) {
	return nil, nil
}

func (m *mockEventStore) Claim(ctx context.Context, eventID int64) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, eventID)
	}
	return true, nil
}

func (m *mockEventStore) Complete(_ context.Context, eventID int64) error {
	m.completedIDs = append(m.completedIDs, eventID)
	return nil
}

func (m *mockEventStore) Fail(_ context.Context, eventID int64, errMsg string) error {
	m.failedIDs = append(m.failedIDs, eventID)
	m.failMessages = append(m.failMessages, errMsg)
	return nil
}

func (m *mockEventStore) ListFailed(_ context.Context, _ int32) ([]model.ProcessingRecord, error) {
	return nil, nil
}

func (m *mockEventStore) DeleteProcessingRecord(_ context.Context, _ int64) error { return nil }

type mockNotificationStore struct {
	insertFn         func(ctx context.Context, n *model.Notification) error
	listRecipientsFn func(ctx context.Context, eventID int64) ([]string, error)
	findNewestFn     func(ctx context.Context, userID, threadID string) (*model.Notification, error)
	incrementFn      func(ctx context.Context, notificationID int64) error
	resumeTierExists bool
	inserted         []model.Notification
	incremented      []int64
}

func (m *mockNotificationStore) Insert(ctx context.Context, n *model.Notification) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, n); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, *n)
	return nil
}

func (m *mockNotificationStore) ListRecipientsByEvent(ctx context.Context, eventID int64) ([]string, error) {
	if m.listRecipientsFn != nil {
		return m.listRecipientsFn(ctx, eventID)
	}
	return nil, nil
}

func (m *mockNotificationStore) FindNewestUnreadThreadActivity(ctx context.Context, userID, threadID string) (*model.Notification, error) {
	if m.findNewestFn != nil {
		return m.findNewestFn(ctx, userID, threadID)
	}
	return nil, store.ErrNotFound
}

func (m *mockNotificationStore) IncrementCount(ctx context.Context, notificationID int64) error {
	m.incremented = append(m.incremented, notificationID)
	if m.incrementFn != nil {
		return m.incrementFn(ctx, notificationID)
	}
	return nil
}

func (m *mockNotificationStore) ResumeNudgeTierExists(_ context.Context, _, _ string, _ model.ResumeKind, _ int) (bool, error) {
	return m.resumeTierExists, nil
}

func (m *mockNotificationStore) DeleteResumeNudgesBefore(_ context.Context, _, _ string, _ model.ResumeKind, _ time.Time) (int64, error) {
	return 0, nil
}

type mockEmailStore struct {
	enqueueFn func(ctx context.Context, e *model.PendingEmail) (bool, error)
	enqueued  []model.PendingEmail
}

func (m *mockEmailStore) Enqueue(ctx context.Context, e *model.PendingEmail) (bool, error) {
	if m.enqueueFn != nil {
		ok, err := m.enqueueFn(ctx, e)
		if !ok || err != nil {
			return ok, err
		}
	}
	m.enqueued = append(m.enqueued, *e)
	return true, nil
}

func (m *mockEmailStore) ListPending(_ context.Context, _ model.DeliveryType, _ int32) ([]model.PendingEmail, error) {
	return nil, nil
}

func (m *mockEmailStore) Claim(_ context.Context, _ int64) (bool, error) { return true, nil }
func (m *mockEmailStore) MarkSent(_ context.Context, _ int64) error     { return nil }
func (m *mockEmailStore) MarkFailed(_ context.Context, _ int64) error   { return nil }

type mockProjectStore struct {
	getByIDFn          func(ctx context.Context, id string) (*model.Project, error)
	listGrantUserIDsFn func(ctx context.Context, projectID string) ([]string, error)
	listOrgOwnerIDsFn  func(ctx context.Context, orgID string) ([]string, error)
	isOrgOwnerFn       func(ctx context.Context, orgID, userID string) (bool, error)
}

func (m *mockProjectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockProjectStore) GetByIDs(_ context.Context, _ []string) (map[string]model.Project, error) {
	return nil, nil
}

func (m *mockProjectStore) List(_ context.Context) ([]model.Project, error) { return nil, nil }

func (m *mockProjectStore) ListByOwnerOrg(_ context.Context, _ string) ([]model.Project, error) {
	return nil, nil
}

func (m *mockProjectStore) ListGrantUserIDs(ctx context.Context, projectID string) ([]string, error) {
	if m.listGrantUserIDsFn != nil {
		return m.listGrantUserIDsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockProjectStore) ListGrantUserIDsBatch(_ context.Context, _ []string) (map[string][]string, error) {
	return nil, nil
}

func (m *mockProjectStore) UpsertGrant(_ context.Context, _ *model.ProjectAccessGrant) error {
	return nil
}

func (m *mockProjectStore) DeleteGrant(_ context.Context, _, _ string) error { return nil }

func (m *mockProjectStore) ListOrgOwnerIDs(ctx context.Context, orgID string) ([]string, error) {
	if m.listOrgOwnerIDsFn != nil {
		return m.listOrgOwnerIDsFn(ctx, orgID)
	}
	return nil, nil
}

func (m *mockProjectStore) ListOrgOwnerIDsBatch(_ context.Context, _ []string) (map[string][]string, error) {
	return nil, nil
}

func (m *mockProjectStore) IsOrgOwner(ctx context.Context, orgID, userID string) (bool, error) {
	if m.isOrgOwnerFn != nil {
		return m.isOrgOwnerFn(ctx, orgID, userID)
	}
	return false, nil
}

type mockProfileStore struct {
	getByIDFn func(ctx context.Context, id string) (*model.Profile, error)
}

func (m *mockProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockProfileStore) GetByIDs(_ context.Context, _ []string) (map[string]model.Profile, error) {
	return nil, nil
}

type mockThreadStore struct {
	listParticipantIDsFn func(ctx context.Context, threadID string) ([]string, error)
}

func (m *mockThreadStore) ListParticipantIDs(ctx context.Context, threadID string) ([]string, error) {
	if m.listParticipantIDsFn != nil {
		return m.listParticipantIDsFn(ctx, threadID)
	}
	return nil, nil
}

func (m *mockThreadStore) ListParticipants(_ context.Context, _ string) ([]model.ThreadParticipant, error) {
	return nil, nil
}

func (m *mockThreadStore) ListParticipantIDsBatch(_ context.Context, _ []string) (map[string][]string, error) {
	return nil, nil
}

func (m *mockThreadStore) ListStaleThreads(_ context.Context, _ time.Time) ([]model.StaleThread, error) {
	return nil, nil
}

func (m *mockThreadStore) CountMessagesSince(_ context.Context, _ string, _ *time.Time) (int, error) {
	return 0, nil
}

func (m *mockThreadStore) NudgeRecorded(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (m *mockThreadStore) RecordNudge(_ context.Context, _ *model.ThreadNudgeLog) error { return nil }

type mockMeetingStore struct {
	getByIDFn            func(ctx context.Context, id string) (*model.Meeting, error)
	listParticipantIDsFn func(ctx context.Context, meetingID string) ([]string, error)
}

func (m *mockMeetingStore) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockMeetingStore) ListParticipantIDs(ctx context.Context, meetingID string) ([]string, error) {
	if m.listParticipantIDsFn != nil {
		return m.listParticipantIDsFn(ctx, meetingID)
	}
	return nil, nil
}

func (m *mockMeetingStore) ListStartingBetween(_ context.Context, _, _ time.Time) ([]model.Meeting, error) {
	return nil, nil
}

func (m *mockMeetingStore) ListParticipantsNeedingReminder(_ context.Context, _, _ string) ([]string, error) {
	return nil, nil
}

func (m *mockMeetingStore) RecordReminderSent(_ context.Context, _ *model.MeetingReminderSent) error {
	return nil
}

type mockResourceStore struct {
	getByIDFn func(ctx context.Context, id string) (*model.Resource, error)
}

func (m *mockResourceStore) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockResourceStore) ListByProject(_ context.Context, _ string) ([]model.Resource, error) {
	return nil, nil
}

func (m *mockResourceStore) GetDocsRoot(_ context.Context, _ string, _ model.ResourceType) (*model.Resource, error) {
	return nil, store.ErrNotFound
}

type mockAccessChecker struct {
	hasViewAccessFn func(ctx context.Context, userID, resourceID string) (bool, error)
}

func (m *mockAccessChecker) HasViewAccess(ctx context.Context, userID, resourceID string) (bool, error) {
	if m.hasViewAccessFn != nil {
		return m.hasViewAccessFn(ctx, userID, resourceID)
	}
	return true, nil
}

type muteKey struct {
	userID  string
	channel model.Channel
}

type mockPrefs struct {
	muted map[muteKey]bool
}

func (m *mockPrefs) IsMuted(_ context.Context, userID string, _ prefs.EventScope, _ model.EventType, channel model.Channel) bool {
	return m.muted[muteKey{userID, channel}]
}

// passthroughNames skips the cache and calls the loader directly.
type passthroughNames struct{}

func (passthroughNames) Lookup(ctx context.Context, _ string, load func(ctx context.Context) (string, error)) (string, error) {
	return load(ctx)
}

// testDeps bundles fresh mocks plus a Handlers wired to them.
type testDeps struct {
	events        *mockEventStore
	notifications *mockNotificationStore
	emails        *mockEmailStore
	projects      *mockProjectStore
	profiles      *mockProfileStore
	threads       *mockThreadStore
	meetings      *mockMeetingStore
	resources     *mockResourceStore
	access        *mockAccessChecker
	prefs         *mockPrefs
	handlers      *fanout.Handlers
}

func newTestDeps() *testDeps {
	d := &testDeps{
		events:        &mockEventStore{},
		notifications: &mockNotificationStore{},
		emails:        &mockEmailStore{},
		projects:      &mockProjectStore{},
		profiles:      &mockProfileStore{},
		threads:       &mockThreadStore{},
		meetings:      &mockMeetingStore{},
		resources:     &mockResourceStore{},
		access:        &mockAccessChecker{},
		prefs:         &mockPrefs{muted: map[muteKey]bool{}},
	}
	d.handlers = fanout.NewHandlers(fanout.HandlerDeps{
		Notifications: d.notifications,
		Emails:        d.emails,
		Projects:      d.projects,
		Profiles:      d.profiles,
		Threads:       d.threads,
		Meetings:      d.meetings,
		Resources:     d.resources,
		Access:        d.access,
		Prefs:         d.prefs,
		Names:         passthroughNames{},
		SiteURL:       "https://app.crewdeck.test",
	})
	return d
}

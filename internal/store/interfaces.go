package store

import (
	"context"
	"errors"
	"time"

	"crewdeck.app/herald/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// EventStore defines the contract for domain event and claim access
type EventStore interface {
	Append(ctx context.Context, event *model.DomainEvent) error
	GetByID(ctx context.Context, id int64) (*model.DomainEvent, error)
	ListUnclaimed(ctx context.Context, limit int32) ([]model.DomainEvent, error)
	ListOccurredBetween(ctx context.Context, from, to time.Time, eventTypes []model.EventType) ([]model.DomainEvent, error)
	Claim(ctx context.Context, eventID int64) (bool, error) // false = another worker holds the claim
	Complete(ctx context.Context, eventID int64) error
	Fail(ctx context.Context, eventID int64, errMsg string) error
	ListFailed(ctx context.Context, limit int32) ([]model.ProcessingRecord, error)
	DeleteProcessingRecord(ctx context.Context, eventID int64) error
}

// NotificationStore defines the contract for in-app notification access
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListRecipientsByEvent(ctx context.Context, eventID int64) ([]string, error)
	FindNewestUnreadThreadActivity(ctx context.Context, userID, threadID string) (*model.Notification, error)
	IncrementCount(ctx context.Context, notificationID int64) error
	ResumeNudgeTierExists(ctx context.Context, userID, projectID string, kind model.ResumeKind, tier int) (bool, error)
	DeleteResumeNudgesBefore(ctx context.Context, userID, projectID string, kind model.ResumeKind, before time.Time) (int64, error)
}

// EmailStore defines the contract for the pending email queue
type EmailStore interface {
	Enqueue(ctx context.Context, e *model.PendingEmail) (bool, error)
	ListPending(ctx context.Context, delivery model.DeliveryType, limit int32) ([]model.PendingEmail, error)
	Claim(ctx context.Context, id int64) (bool, error) // false = lost to a concurrent claim
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

// PreferenceStore defines the contract for notification preference access
type PreferenceStore interface {
	ListForUser(ctx context.Context, userID string) ([]model.NotificationPreference, error)
	UsersForDailyDigest(ctx context.Context) ([]model.Profile, error)
}

// ProjectStore defines the contract for project, grant and org access
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	ListByOwnerOrg(ctx context.Context, orgID string) ([]model.Project, error)
	ListGrantUserIDs(ctx context.Context, projectID string) ([]string, error)
	ListGrantUserIDsBatch(ctx context.Context, projectIDs []string) (map[string][]string, error)
	UpsertGrant(ctx context.Context, grant *model.ProjectAccessGrant) error
	DeleteGrant(ctx context.Context, projectID, userID string) error
	ListOrgOwnerIDs(ctx context.Context, orgID string) ([]string, error)
	ListOrgOwnerIDsBatch(ctx context.Context, orgIDs []string) (map[string][]string, error)
	IsOrgOwner(ctx context.Context, orgID, userID string) (bool, error)
}

// ProfileStore defines the contract for user profile lookups
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error)
}

// ResourceStore defines the contract for document tree access
type ResourceStore interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Resource, error)
	GetDocsRoot(ctx context.Context, projectID string, rootType model.ResourceType) (*model.Resource, error)
}

// PermissionStore defines the contract for explicit permission rows
type PermissionStore interface {
	Get(ctx context.Context, resourceID, userID string) (*model.Permission, error)
	ListForUser(ctx context.Context, userID string, resourceIDs []string) ([]model.Permission, error)
	Upsert(ctx context.Context, p *model.Permission) error
	Delete(ctx context.Context, resourceID, userID string) error
}

// ThreadStore defines the contract for chat thread access
type ThreadStore interface {
	ListParticipantIDs(ctx context.Context, threadID string) ([]string, error)
	ListParticipants(ctx context.Context, threadID string) ([]model.ThreadParticipant, error)
	ListParticipantIDsBatch(ctx context.Context, threadIDs []string) (map[string][]string, error)
	ListStaleThreads(ctx context.Context, olderThan time.Time) ([]model.StaleThread, error)
	CountMessagesSince(ctx context.Context, threadID string, since *time.Time) (int, error)
	NudgeRecorded(ctx context.Context, threadID, userID string, latestMessageAt time.Time) (bool, error)
	RecordNudge(ctx context.Context, log *model.ThreadNudgeLog) error
}

// MeetingStore defines the contract for meeting access
type MeetingStore interface {
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	ListParticipantIDs(ctx context.Context, meetingID string) ([]string, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Meeting, error)
	ListParticipantsNeedingReminder(ctx context.Context, meetingID, reminderType string) ([]string, error)
	RecordReminderSent(ctx context.Context, marker *model.MeetingReminderSent) error
}

// ResumeStore defines the contract for resume activity and versions
type ResumeStore interface {
	ListActivity(ctx context.Context, projectID string) (map[string]model.ResumeActivity, error)
	LatestVersion(ctx context.Context, projectID string, kind model.ResumeKind) (*model.ResumeVersion, error)
}

// DigestStore defines the contract for daily digest idempotency markers
type DigestStore interface {
	ListRecordedEventIDs(ctx context.Context, userID string, date time.Time) ([]int64, error)
	RecordBatch(ctx context.Context, records []model.DigestRecord) error
}

// CalendarStore defines the contract for calendar connection access
type CalendarStore interface {
	ListExpiringWatches(ctx context.Context, before time.Time) ([]model.CalendarConnection, error)
	UpdateTokens(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error
	UpdateWatch(ctx context.Context, id int64, channelID, resourceID string, expiration time.Time) error
}

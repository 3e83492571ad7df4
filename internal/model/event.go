package model

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTypeDocumentUploaded          EventType = "document_uploaded"
	EventTypeChatMessageSent           EventType = "chat_message_sent"
	EventTypeThreadUnreadStale         EventType = "thread_unread_stale"
	EventTypeMeetingInvited            EventType = "meeting_invited"
	EventTypeMeetingUpdated            EventType = "meeting_updated"
	EventTypeMeetingReminder           EventType = "meeting_reminder"
	EventTypeResumeIncompleteNudge     EventType = "resume_incomplete_nudge"
	EventTypeInviteAccepted            EventType = "invite_accepted"
	EventTypeProjectAccessGranted      EventType = "project_access_granted"
	EventTypeProjectAccessChanged      EventType = "project_access_changed"
	EventTypeProjectAccessRevoked      EventType = "project_access_revoked"
	EventTypeDocumentPermissionGranted EventType = "document_permission_granted"
	EventTypeDocumentPermissionChanged EventType = "document_permission_changed"
)

// DomainEvent is an append-only record of something that happened in the
// product. A nil ActorID marks a system-generated event (nudges, reminders).
type DomainEvent struct {
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
	EventType  EventType       `json:"event_type"`
	ActorID    *string         `json:"actor_id,omitempty"`
	ProjectID  *string         `json:"project_id,omitempty"`
	OrgID      *string         `json:"org_id,omitempty"`
	ResourceID *string         `json:"resource_id,omitempty"`
	ThreadID   *string         `json:"thread_id,omitempty"`
	MeetingID  *string         `json:"meeting_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ID         int64           `json:"id"`
}

type ProcessingStatus string

const (
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// ProcessingRecord is the claim row for a domain event. Existence of the
// row is the claim; at most one worker ever inserts it.
type ProcessingRecord struct {
	ClaimedAt    time.Time        `json:"claimed_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	Status       ProcessingStatus `json:"status"`
	EventID      int64            `json:"event_id"`
	RetryCount   int32            `json:"retry_count"`
}

package model

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeDocumentUploaded   NotificationType = "document_uploaded"
	NotificationTypeThreadActivity     NotificationType = "thread_activity"
	NotificationTypeMention            NotificationType = "mention"
	NotificationTypeMeetingInvited     NotificationType = "meeting_invited"
	NotificationTypeMeetingUpdated     NotificationType = "meeting_updated"
	NotificationTypeMeetingReminder    NotificationType = "meeting_reminder"
	NotificationTypeResumeNudge        NotificationType = "resume_incomplete_nudge"
	NotificationTypeInviteAccepted     NotificationType = "invite_accepted"
	NotificationTypeAccessGranted      NotificationType = "project_access_granted"
	NotificationTypeAccessChanged      NotificationType = "project_access_changed"
	NotificationTypeAccessRevoked      NotificationType = "project_access_revoked"
	NotificationTypeDocumentPermission NotificationType = "document_permission"
)

// Notification is an in-app notification row. Payload carries a type
// discriminator and, for thread_activity rows, a running message count.
type Notification struct {
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	LinkURL   string          `json:"link_url"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ID        int64           `json:"id"`
	EventID   int64           `json:"event_id"`
}

// NotificationPayload is the decoded shape of Notification.Payload.
type NotificationPayload struct {
	Type       NotificationType `json:"type"`
	ThreadID   *string          `json:"thread_id,omitempty"`
	Count      *int             `json:"count,omitempty"`
	ProjectID  *string          `json:"project_id,omitempty"`
	ResumeKind *ResumeKind      `json:"resume_kind,omitempty"`
	Tier       *int             `json:"tier,omitempty"`
}

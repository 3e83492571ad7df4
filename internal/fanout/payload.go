package fanout

import (
	"encoding/json"
	"fmt"

	"crewdeck.app/herald/internal/model"
)

// Event payloads are written by the product API and the nudge schedulers.
// Decoding is strict about presence of the fields a handler depends on.

type documentUploadedPayload struct {
	FileName string `json:"file_name"`
}

type chatMessagePayload struct {
	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`
	Preview          string   `json:"preview,omitempty"`
}

type threadUnreadStalePayload struct {
	UserID      string `json:"user_id"`
	UnreadCount int    `json:"unread_count"`
}

type meetingInvitedPayload struct {
	InviteeUserID string `json:"invitee_user_id"`
}

type meetingReminderPayload struct {
	UserID string `json:"user_id"`
}

type resumeNudgePayload struct {
	UserID     string           `json:"user_id"`
	ResumeKind model.ResumeKind `json:"resume_kind"`
	Tier       int              `json:"tier"`
}

type accessChangePayload struct {
	UserID   string                `json:"user_id"`
	OldLevel model.PermissionLevel `json:"old_level,omitempty"`
	NewLevel model.PermissionLevel `json:"new_level,omitempty"`
}

func decodePayload(event *model.DomainEvent, v any) error {
	if len(event.Payload) == 0 {
		return fmt.Errorf("event %d has no payload", event.ID)
	}
	if err := json.Unmarshal(event.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return nil
}

func encodeNotificationPayload(p model.NotificationPayload) json.RawMessage {
	data, _ := json.Marshal(p)
	return data
}

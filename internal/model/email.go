package model

import (
	"encoding/json"
	"time"
)

type DeliveryType string

const (
	DeliveryTypeImmediate  DeliveryType = "immediate"
	DeliveryTypeAggregated DeliveryType = "aggregated"
)

type EmailStatus string

const (
	EmailStatusPending    EmailStatus = "pending"
	EmailStatusProcessing EmailStatus = "processing"
	EmailStatusSent       EmailStatus = "sent"
	EmailStatusFailed     EmailStatus = "failed"
)

// PendingEmail is a queued email. The (event_id, user_id) pair is unique;
// enqueue is an upsert that resets status to pending.
type PendingEmail struct {
	CreatedAt    time.Time       `json:"created_at"`
	ClaimedAt    *time.Time      `json:"claimed_at,omitempty"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	EventType    EventType       `json:"event_type"`
	DeliveryType DeliveryType    `json:"delivery_type"`
	Status       EmailStatus     `json:"status"`
	UserID       string          `json:"user_id"`
	Subject      string          `json:"subject"`
	ProjectID    *string         `json:"project_id,omitempty"`
	ProjectName  *string         `json:"project_name,omitempty"`
	BodyData     json.RawMessage `json:"body_data,omitempty"`
	ID           int64           `json:"id"`
	EventID      int64           `json:"event_id"`
}

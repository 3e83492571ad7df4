package model

// Wildcard matches any event type or channel in a preference row.
const Wildcard = "*"

type PreferenceScope string

const (
	ScopeThread  PreferenceScope = "thread"
	ScopeProject PreferenceScope = "project"
	ScopeGlobal  PreferenceScope = "global"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

type PreferenceStatus string

const (
	PreferenceStatusMuted   PreferenceStatus = "muted"
	PreferenceStatusDigest  PreferenceStatus = "digest"
	PreferenceStatusInstant PreferenceStatus = "instant"
)

// NotificationPreference scopes a delivery decision. ScopeID is nil for
// global rows. EventType and Channel may be the wildcard "*".
type NotificationPreference struct {
	UserID    string           `json:"user_id"`
	ScopeType PreferenceScope  `json:"scope_type"`
	ScopeID   *string          `json:"scope_id,omitempty"`
	EventType string           `json:"event_type"`
	Channel   string           `json:"channel"`
	Status    PreferenceStatus `json:"status"`
	ID        int64            `json:"id"`
}

package model

import (
	"encoding/json"
	"time"
)

// CalendarConnection holds a user's OAuth tokens and the push-notification
// watch channel registered with the calendar provider.
type CalendarConnection struct {
	TokenExpiresAt  time.Time       `json:"token_expires_at"`
	WatchExpiration *time.Time      `json:"watch_expiration,omitempty"`
	UserID          string          `json:"user_id"`
	AccessToken     string          `json:"access_token"`
	RefreshToken    string          `json:"refresh_token"`
	WatchChannelID  *string         `json:"watch_channel_id,omitempty"`
	WatchResourceID *string         `json:"watch_resource_id,omitempty"`
	CalendarList    json.RawMessage `json:"calendar_list,omitempty"`
	ID              int64           `json:"id"`
}

package model

import "time"

type ChatThread struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     *string   `json:"title,omitempty"`
}

type ThreadParticipant struct {
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	ThreadID   string     `json:"thread_id"`
	UserID     string     `json:"user_id"`
}

type ThreadMessage struct {
	CreatedAt time.Time `json:"created_at"`
	ThreadID  string    `json:"thread_id"`
	UserID    string    `json:"user_id"`
	ID        int64     `json:"id"`
}

// StaleThread is an aggregate row for the unread-thread scheduler: the
// thread's latest message and who sent it.
type StaleThread struct {
	LatestMessageAt time.Time `json:"latest_message_at"`
	ThreadID        string    `json:"thread_id"`
	ProjectID       string    `json:"project_id"`
	LatestSenderID  string    `json:"latest_sender_id"`
}

package model

import "time"

type ResumeKind string

const (
	ResumeKindProject  ResumeKind = "project"
	ResumeKindBorrower ResumeKind = "borrower"
)

// ResumeActivity tracks the most recent resume edits per project. Nudge
// timers restart from these timestamps.
type ResumeActivity struct {
	LastProjectResumeEditAt  *time.Time `json:"last_project_resume_edit_at,omitempty"`
	LastBorrowerResumeEditAt *time.Time `json:"last_borrower_resume_edit_at,omitempty"`
	ProjectID                string     `json:"project_id"`
	UserID                   string     `json:"user_id"`
}

// ResumeVersion is one saved revision; the latest row per
// (project, resume_kind) carries the current completeness.
type ResumeVersion struct {
	CreatedAt           time.Time  `json:"created_at"`
	ProjectID           string     `json:"project_id"`
	ResumeKind          ResumeKind `json:"resume_kind"`
	CompletenessPercent int        `json:"completeness_percent"`
	ID                  int64      `json:"id"`
}

// ThreadNudgeLog is the unread-thread nudge watermark. The unique
// (thread, user, latest_message_at) triple allows at most one nudge per
// batch of unread messages.
type ThreadNudgeLog struct {
	LatestMessageAt time.Time `json:"latest_message_at"`
	CreatedAt       time.Time `json:"created_at"`
	ThreadID        string    `json:"thread_id"`
	UserID          string    `json:"user_id"`
}

// DigestRecord marks an event as already included in a user's daily
// digest for a given date.
type DigestRecord struct {
	DigestDate time.Time `json:"digest_date"`
	UserID     string    `json:"user_id"`
	EventID    int64     `json:"event_id"`
}

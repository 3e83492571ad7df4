package nudge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

// PreferenceResolver is the slice of internal/prefs the schedulers need.
type PreferenceResolver interface {
	IsMuted(ctx context.Context, userID string, scope prefs.EventScope, eventType model.EventType, channel model.Channel) bool
}

// ThreadScheduler appends thread_unread_stale events for participants who
// have left messages unread past the staleness threshold. The
// (thread, user, latest_message_at) log row allows one nudge per batch of
// unread messages.
type ThreadScheduler struct {
	events         store.EventStore
	threads        store.ThreadStore
	prefs          PreferenceResolver
	staleThreshold time.Duration
	now            func() time.Time
}

func NewThreadScheduler(events store.EventStore, threads store.ThreadStore, prefs PreferenceResolver, staleThreshold time.Duration) *ThreadScheduler {
	return &ThreadScheduler{
		events:         events,
		threads:        threads,
		prefs:          prefs,
		staleThreshold: staleThreshold,
		now:            time.Now,
	}
}

func (s *ThreadScheduler) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.nudge.threads"})

	stale, err := s.threads.ListStaleThreads(ctx, s.now().Add(-s.staleThreshold))
	if err != nil {
		return fmt.Errorf("list stale threads: %w", err)
	}

	appended := 0
	for i := range stale {
		n, err := s.processThread(ctx, &stale[i])
		if err != nil {
			slog.ErrorContext(ctx, "thread nudge scan failed",
				"thread_id", stale[i].ThreadID, "error", err)
			continue
		}
		appended += n
	}
	slog.InfoContext(ctx, "thread nudge run finished",
		"stale_threads", len(stale), "events_appended", appended)
	return nil
}

func (s *ThreadScheduler) processThread(ctx context.Context, thread *model.StaleThread) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ThreadID: logger.Ptr(thread.ThreadID)})

	participants, err := s.threads.ListParticipants(ctx, thread.ThreadID)
	if err != nil {
		return 0, fmt.Errorf("list participants: %w", err)
	}

	scope := prefs.EventScope{ThreadID: &thread.ThreadID, ProjectID: &thread.ProjectID}
	appended := 0
	for _, p := range participants {
		if p.UserID == thread.LatestSenderID {
			continue
		}
		if p.LastReadAt != nil && !p.LastReadAt.Before(thread.LatestMessageAt) {
			continue
		}

		recorded, err := s.threads.NudgeRecorded(ctx, thread.ThreadID, p.UserID, thread.LatestMessageAt)
		if err != nil {
			slog.ErrorContext(ctx, "nudge dedupe check failed", "user_id", p.UserID, "error", err)
			continue
		}
		if recorded {
			continue
		}
		if s.prefs.IsMuted(ctx, p.UserID, scope, model.EventTypeThreadUnreadStale, model.ChannelEmail) {
			continue
		}

		unread, err := s.threads.CountMessagesSince(ctx, thread.ThreadID, p.LastReadAt)
		if err != nil {
			slog.ErrorContext(ctx, "unread count failed", "user_id", p.UserID, "error", err)
			continue
		}
		if unread == 0 {
			continue
		}

		if err := s.appendNudge(ctx, thread, p.UserID, unread); err != nil {
			slog.ErrorContext(ctx, "appending thread nudge failed", "user_id", p.UserID, "error", err)
			continue
		}
		appended++
	}
	return appended, nil
}

func (s *ThreadScheduler) appendNudge(ctx context.Context, thread *model.StaleThread, userID string, unread int) error {
	payload, _ := json.Marshal(map[string]any{
		"user_id":      userID,
		"unread_count": unread,
	})
	event := &model.DomainEvent{
		ID:         id.New(),
		EventType:  model.EventTypeThreadUnreadStale,
		ProjectID:  &thread.ProjectID,
		ThreadID:   &thread.ThreadID,
		OccurredAt: s.now(),
		Payload:    payload,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append thread nudge event: %w", err)
	}
	return s.threads.RecordNudge(ctx, &model.ThreadNudgeLog{
		ThreadID:        thread.ThreadID,
		UserID:          userID,
		LatestMessageAt: thread.LatestMessageAt,
	})
}

// Package nudge holds the scheduled jobs that append reminder events to
// the domain event log: incomplete-resume nudges, unread-thread nudges and
// meeting reminders. The fan-out loop turns these events into
// notifications and emails like any other.
package nudge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// resumeTiers are the escalation thresholds. Elapsed time since the last
// qualifying edit selects the highest threshold passed.
var resumeTiers = []time.Duration{
	24 * time.Hour,
	3 * 24 * time.Hour,
	5 * 24 * time.Hour,
	7 * 24 * time.Hour,
}

// TierFor returns the 1-based nudge tier for the elapsed time, or 0 when
// the first threshold has not been reached.
func TierFor(elapsed time.Duration) int {
	tier := 0
	for i, threshold := range resumeTiers {
		if elapsed >= threshold {
			tier = i + 1
		}
	}
	return tier
}

// ResumeScheduler appends resume_incomplete_nudge events for org owners
// whose project or borrower resume has stalled.
type ResumeScheduler struct {
	events        store.EventStore
	projects      store.ProjectStore
	resumes       store.ResumeStore
	notifications store.NotificationStore
	dryRun        bool
	now           func() time.Time
}

func NewResumeScheduler(events store.EventStore, projects store.ProjectStore, resumes store.ResumeStore, notifications store.NotificationStore, dryRun bool) *ResumeScheduler {
	return &ResumeScheduler{
		events:        events,
		projects:      projects,
		resumes:       resumes,
		notifications: notifications,
		dryRun:        dryRun,
		now:           time.Now,
	}
}

func (s *ResumeScheduler) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.nudge.resume"})

	projects, err := s.projects.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	appended := 0
	for i := range projects {
		n, err := s.processProject(ctx, &projects[i])
		if err != nil {
			slog.ErrorContext(ctx, "resume nudge scan failed for project",
				"project_id", projects[i].ID, "error", err)
			continue
		}
		appended += n
	}
	slog.InfoContext(ctx, "resume nudge run finished",
		"projects", len(projects), "events_appended", appended)
	return nil
}

func (s *ResumeScheduler) processProject(ctx context.Context, project *model.Project) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ProjectID: logger.Ptr(project.ID)})

	owners, err := s.projects.ListOrgOwnerIDs(ctx, project.OwnerOrgID)
	if err != nil {
		return 0, fmt.Errorf("list org owners: %w", err)
	}
	if len(owners) == 0 {
		return 0, nil
	}

	activity, err := s.resumes.ListActivity(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("load resume activity: %w", err)
	}

	appended := 0
	for _, kind := range []model.ResumeKind{model.ResumeKindProject, model.ResumeKindBorrower} {
		n, err := s.processKind(ctx, project, owners, activity, kind)
		if err != nil {
			slog.ErrorContext(ctx, "resume nudge scan failed for kind",
				"resume_kind", kind, "error", err)
			continue
		}
		appended += n
	}
	return appended, nil
}

func (s *ResumeScheduler) processKind(ctx context.Context, project *model.Project, owners []string, activity map[string]model.ResumeActivity, kind model.ResumeKind) (int, error) {
	version, err := s.resumes.LatestVersion(ctx, project.ID, kind)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("load latest resume version: %w", err)
	}
	if version != nil && version.CompletenessPercent >= 100 {
		return 0, nil
	}

	appended := 0
	for _, ownerID := range owners {
		// The timer restarts from this owner's last qualifying edit;
		// with no edits recorded it runs from project creation.
		refTime := project.CreatedAt
		if a, ok := activity[ownerID]; ok {
			if edit := lastEditFor(&a, kind); edit != nil {
				refTime = *edit
			}
		}
		tier := TierFor(s.now().Sub(refTime))

		// An edit after a sent nudge resets the ladder.
		deleted, err := s.notifications.DeleteResumeNudgesBefore(ctx, ownerID, project.ID, kind, refTime)
		if err != nil {
			return appended, fmt.Errorf("reset stale nudges: %w", err)
		}
		if deleted > 0 {
			slog.InfoContext(ctx, "reset resume nudges after edit",
				"user_id", ownerID, "resume_kind", kind, "deleted", deleted)
		}

		if tier == 0 {
			continue
		}
		exists, err := s.notifications.ResumeNudgeTierExists(ctx, ownerID, project.ID, kind, tier)
		if err != nil {
			return appended, fmt.Errorf("check nudge tier: %w", err)
		}
		if exists {
			continue
		}

		if s.dryRun {
			slog.InfoContext(ctx, "dry run, would append resume nudge",
				"user_id", ownerID, "resume_kind", kind, "tier", tier)
			continue
		}
		if err := s.appendNudge(ctx, project.ID, ownerID, kind, tier); err != nil {
			return appended, err
		}
		appended++
	}
	return appended, nil
}

func (s *ResumeScheduler) appendNudge(ctx context.Context, projectID, userID string, kind model.ResumeKind, tier int) error {
	payload, _ := json.Marshal(map[string]any{
		"user_id":     userID,
		"resume_kind": kind,
		"tier":        tier,
	})
	event := &model.DomainEvent{
		ID:         id.New(),
		EventType:  model.EventTypeResumeIncompleteNudge,
		ProjectID:  &projectID,
		OccurredAt: s.now(),
		Payload:    payload,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append resume nudge event: %w", err)
	}
	slog.InfoContext(ctx, "resume nudge appended",
		"user_id", userID, "resume_kind", kind, "tier", tier, "event_id", event.ID)
	return nil
}

func lastEditFor(activity *model.ResumeActivity, kind model.ResumeKind) *time.Time {
	if kind == model.ResumeKindBorrower {
		return activity.LastBorrowerResumeEditAt
	}
	return activity.LastProjectResumeEditAt
}

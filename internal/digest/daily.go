// Package digest builds the daily email digest over a sliding window:
// yesterday's digest-eligible events minus the digest_log markers already
// recorded for each user. Markers written after a successful send make the
// run idempotent.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/access"
	"crewdeck.app/herald/internal/mailer"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// digestEventTypes are the event types the daily digest covers.
var digestEventTypes = []model.EventType{
	model.EventTypeChatMessageSent,
	model.EventTypeDocumentUploaded,
}

// PreferenceResolver is the slice of internal/prefs the worker needs.
type PreferenceResolver interface {
	ShouldIncludeInDigest(ctx context.Context, userID string, event *model.DomainEvent) bool
}

type Worker struct {
	events      store.EventStore
	projects    store.ProjectStore
	profiles    store.ProfileStore
	threads     store.ThreadStore
	preferences store.PreferenceStore
	digests     store.DigestStore
	access      *access.Resolver
	prefs       PreferenceResolver
	sender      mailer.EmailSender
	now         func() time.Time
}

type WorkerDeps struct {
	Events      store.EventStore
	Projects    store.ProjectStore
	Profiles    store.ProfileStore
	Threads     store.ThreadStore
	Preferences store.PreferenceStore
	Digests     store.DigestStore
	Access      *access.Resolver
	Prefs       PreferenceResolver
	Sender      mailer.EmailSender
}

func NewWorker(deps WorkerDeps) *Worker {
	return &Worker{
		events:      deps.Events,
		projects:    deps.Projects,
		profiles:    deps.Profiles,
		threads:     deps.Threads,
		preferences: deps.Preferences,
		digests:     deps.Digests,
		access:      deps.Access,
		prefs:       deps.Prefs,
		sender:      deps.Sender,
		now:         time.Now,
	}
}

// window holds one day's events plus the batched lookups shared across
// every user in the cohort.
type window struct {
	date         time.Time
	events       []model.DomainEvent
	grants       map[string][]string // project -> user IDs
	owners       map[string][]string // org -> owner IDs
	participants map[string][]string // thread -> participant IDs
	projects     map[string]model.Project
	actorNames   map[string]string
}

func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.digest.daily"})

	win, err := w.loadWindow(ctx)
	if err != nil {
		return err
	}
	if len(win.events) == 0 {
		slog.InfoContext(ctx, "no digest-eligible events yesterday")
		return nil
	}

	users, err := w.preferences.UsersForDailyDigest(ctx)
	if err != nil {
		return fmt.Errorf("load digest cohort: %w", err)
	}

	sent := 0
	for i := range users {
		ok, err := w.processUser(ctx, &users[i], win)
		if err != nil {
			slog.ErrorContext(ctx, "digest for user failed",
				"user_id", users[i].ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	slog.InfoContext(ctx, "daily digest run finished",
		"events", len(win.events), "cohort", len(users), "digests_sent", sent)
	return nil
}

// loadWindow loads yesterday's events and prefetches every per-project,
// per-org, per-thread and per-actor lookup in a handful of batched
// queries.
func (w *Worker) loadWindow(ctx context.Context) (*window, error) {
	today := w.now().UTC().Truncate(24 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	events, err := w.events.ListOccurredBetween(ctx, yesterday, today, digestEventTypes)
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	win := &window{date: yesterday, events: events}
	if len(events) == 0 {
		return win, nil
	}

	projectSet := make(map[string]bool)
	threadSet := make(map[string]bool)
	actorSet := make(map[string]bool)
	for i := range events {
		if events[i].ProjectID != nil {
			projectSet[*events[i].ProjectID] = true
		}
		if events[i].ThreadID != nil {
			threadSet[*events[i].ThreadID] = true
		}
		if events[i].ActorID != nil {
			actorSet[*events[i].ActorID] = true
		}
	}

	projectIDs := keys(projectSet)
	win.projects, err = w.projects.GetByIDs(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("batch load projects: %w", err)
	}
	win.grants, err = w.projects.ListGrantUserIDsBatch(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("batch load grants: %w", err)
	}

	orgSet := make(map[string]bool)
	for _, p := range win.projects {
		orgSet[p.OwnerOrgID] = true
	}
	win.owners, err = w.projects.ListOrgOwnerIDsBatch(ctx, keys(orgSet))
	if err != nil {
		return nil, fmt.Errorf("batch load org owners: %w", err)
	}

	win.participants, err = w.threads.ListParticipantIDsBatch(ctx, keys(threadSet))
	if err != nil {
		return nil, fmt.Errorf("batch load thread participants: %w", err)
	}

	actors, err := w.profiles.GetByIDs(ctx, keys(actorSet))
	if err != nil {
		return nil, fmt.Errorf("batch load actor profiles: %w", err)
	}
	win.actorNames = make(map[string]string, len(actors))
	for id, p := range actors {
		win.actorNames[id] = p.FullName
	}

	return win, nil
}

// processUser assembles and sends one user's digest. Returns whether a
// digest went out.
func (w *Worker) processUser(ctx context.Context, user *model.Profile, win *window) (bool, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(user.ID)})

	recorded, err := w.digests.ListRecordedEventIDs(ctx, user.ID, win.date)
	if err != nil {
		return false, fmt.Errorf("list digest markers: %w", err)
	}
	seen := make(map[int64]bool, len(recorded))
	for _, id := range recorded {
		seen[id] = true
	}

	snapshots := make(map[string]*access.Snapshot)
	var items []mailer.DigestItem
	var markers []model.DigestRecord

	for i := range win.events {
		event := &win.events[i]
		if seen[event.ID] {
			continue
		}
		if event.ActorID != nil && *event.ActorID == user.ID {
			continue
		}
		if !w.isRecipient(user.ID, event, win) {
			continue
		}
		if event.ResourceID != nil && event.ProjectID != nil {
			snap, err := w.snapshotFor(ctx, user.ID, *event.ProjectID, snapshots)
			if err != nil {
				return false, err
			}
			if !snap.HasView(*event.ResourceID) {
				continue
			}
		}
		if !w.prefs.ShouldIncludeInDigest(ctx, user.ID, event) {
			continue
		}

		items = append(items, w.digestItem(event, win))
		markers = append(markers, model.DigestRecord{
			EventID:    event.ID,
			UserID:     user.ID,
			DigestDate: win.date,
		})
	}

	if len(items) == 0 {
		return false, nil
	}
	if user.Email == nil || *user.Email == "" {
		return false, nil
	}

	subject, htmlBody, textBody := mailer.BuildDigest(user.FullName, items)
	if err := w.sender.Send(ctx, *user.Email, subject, htmlBody, textBody, "daily_digest"); err != nil {
		return false, fmt.Errorf("send digest: %w", err)
	}
	if err := w.digests.RecordBatch(ctx, markers); err != nil {
		// The digest went out; a marker failure risks one duplicate line
		// tomorrow, not a lost email.
		slog.ErrorContext(ctx, "recording digest markers failed", "error", err)
	}
	return true, nil
}

// isRecipient checks membership using the prefetched window maps: project
// grant, org ownership, or thread participation for chat events.
func (w *Worker) isRecipient(userID string, event *model.DomainEvent, win *window) bool {
	if event.ThreadID != nil {
		for _, id := range win.participants[*event.ThreadID] {
			if id == userID {
				return true
			}
		}
		// Thread events target participants only.
		return false
	}
	if event.ProjectID == nil {
		return false
	}
	for _, id := range win.grants[*event.ProjectID] {
		if id == userID {
			return true
		}
	}
	if project, ok := win.projects[*event.ProjectID]; ok {
		for _, id := range win.owners[project.OwnerOrgID] {
			if id == userID {
				return true
			}
		}
	}
	return false
}

func (w *Worker) snapshotFor(ctx context.Context, userID, projectID string, cache map[string]*access.Snapshot) (*access.Snapshot, error) {
	if snap, ok := cache[projectID]; ok {
		return snap, nil
	}
	snap, err := w.access.BuildSnapshot(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("build access snapshot: %w", err)
	}
	cache[projectID] = snap
	return snap, nil
}

func (w *Worker) digestItem(event *model.DomainEvent, win *window) mailer.DigestItem {
	projectName := ""
	if event.ProjectID != nil {
		if project, ok := win.projects[*event.ProjectID]; ok {
			projectName = project.Name
		}
	}
	actorName := "Someone"
	if event.ActorID != nil {
		if name, ok := win.actorNames[*event.ActorID]; ok && name != "" {
			actorName = name
		}
	}

	item := mailer.DigestItem{ProjectName: projectName, EventType: string(event.EventType)}
	switch event.EventType {
	case model.EventTypeDocumentUploaded:
		var payload struct {
			FileName string `json:"file_name"`
		}
		_ = json.Unmarshal(event.Payload, &payload)
		if payload.FileName == "" {
			payload.FileName = "a document"
		}
		item.Line = fmt.Sprintf("%s uploaded %s", actorName, payload.FileName)
	case model.EventTypeChatMessageSent:
		item.Line = fmt.Sprintf("%s sent a chat message", actorName)
	default:
		item.Line = fmt.Sprintf("Activity: %s", event.EventType)
	}
	return item
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

package fanout

import (
	"context"
	"fmt"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

// AccessChecker is the slice of internal/access the handlers need.
type AccessChecker interface {
	HasViewAccess(ctx context.Context, userID, resourceID string) (bool, error)
}

// PreferenceResolver is the slice of internal/prefs the handlers need.
type PreferenceResolver interface {
	IsMuted(ctx context.Context, userID string, scope prefs.EventScope, eventType model.EventType, channel model.Channel) bool
}

// NameLookup resolves display names, optionally through the Redis cache.
type NameLookup interface {
	Lookup(ctx context.Context, key string, load func(ctx context.Context) (string, error)) (string, error)
}

// Handlers implements the per-event-type fan-out logic.
type Handlers struct {
	notifications store.NotificationStore
	emails        store.EmailStore
	projects      store.ProjectStore
	profiles      store.ProfileStore
	threads       store.ThreadStore
	meetings      store.MeetingStore
	resources     store.ResourceStore
	access        AccessChecker
	prefs         PreferenceResolver
	names         NameLookup
	siteURL       string
}

type HandlerDeps struct {
	Notifications store.NotificationStore
	Emails        store.EmailStore
	Projects      store.ProjectStore
	Profiles      store.ProfileStore
	Threads       store.ThreadStore
	Meetings      store.MeetingStore
	Resources     store.ResourceStore
	Access        AccessChecker
	Prefs         PreferenceResolver
	Names         NameLookup
	SiteURL       string
}

func NewHandlers(deps HandlerDeps) *Handlers {
	return &Handlers{
		notifications: deps.Notifications,
		emails:        deps.Emails,
		projects:      deps.Projects,
		profiles:      deps.Profiles,
		threads:       deps.Threads,
		meetings:      deps.Meetings,
		resources:     deps.Resources,
		access:        deps.Access,
		prefs:         deps.Prefs,
		names:         deps.Names,
		siteURL:       deps.SiteURL,
	}
}

// Registry maps every handled event type to its handler.
func (h *Handlers) Registry() map[model.EventType]HandlerFunc {
	return map[model.EventType]HandlerFunc{
		model.EventTypeDocumentUploaded:          h.handleDocumentUploaded,
		model.EventTypeChatMessageSent:           h.handleChatMessageSent,
		model.EventTypeThreadUnreadStale:         h.handleThreadUnreadStale,
		model.EventTypeMeetingInvited:            h.handleMeetingInvited,
		model.EventTypeMeetingUpdated:            h.handleMeetingUpdated,
		model.EventTypeMeetingReminder:           h.handleMeetingReminder,
		model.EventTypeResumeIncompleteNudge:     h.handleResumeNudge,
		model.EventTypeInviteAccepted:            h.handleInviteAccepted,
		model.EventTypeProjectAccessGranted:      h.handleProjectAccessGranted,
		model.EventTypeProjectAccessChanged:      h.handleProjectAccessChanged,
		model.EventTypeProjectAccessRevoked:      h.handleProjectAccessRevoked,
		model.EventTypeDocumentPermissionGranted: h.handleDocumentPermissionGranted,
		model.EventTypeDocumentPermissionChanged: h.handleDocumentPermissionChanged,
	}
}

// alreadyNotified returns the set of users who already have a notification
// for this event, the idempotency guard for re-driven events.
func (h *Handlers) alreadyNotified(ctx context.Context, eventID int64) (map[string]bool, error) {
	userIDs, err := h.notifications.ListRecipientsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list existing recipients: %w", err)
	}
	notified := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		notified[id] = true
	}
	return notified, nil
}

func (h *Handlers) projectName(ctx context.Context, projectID string) (string, error) {
	return h.names.Lookup(ctx, "project_name:"+projectID, func(ctx context.Context) (string, error) {
		project, err := h.projects.GetByID(ctx, projectID)
		if err != nil {
			return "", err
		}
		return project.Name, nil
	})
}

func (h *Handlers) profileName(ctx context.Context, userID string) (string, error) {
	return h.names.Lookup(ctx, "profile_name:"+userID, func(ctx context.Context) (string, error) {
		profile, err := h.profiles.GetByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return profile.FullName, nil
	})
}

func (h *Handlers) workspaceLink(projectID string, resourceID *string) string {
	link := fmt.Sprintf("%s/projects/%s/workspace", h.siteURL, projectID)
	if resourceID != nil {
		link += "?resourceId=" + *resourceID
	}
	return link
}

func (h *Handlers) threadLink(projectID, threadID string) string {
	return fmt.Sprintf("%s/projects/%s/chat?threadId=%s", h.siteURL, projectID, threadID)
}

func (h *Handlers) meetingLink(projectID string) string {
	return fmt.Sprintf("%s/projects/%s/meetings", h.siteURL, projectID)
}

func (h *Handlers) dashboardLink() string {
	return h.siteURL + "/dashboard"
}

func (h *Handlers) actorID(event *model.DomainEvent) string {
	if event.ActorID == nil {
		return ""
	}
	return *event.ActorID
}

// Package prefs resolves per-user notification preferences. Preference
// rows are scoped (thread > project > global) and may use the "*"
// wildcard for event type or channel. Store failures resolve fail-open:
// a user is never muted because a lookup failed.
package prefs

import (
	"context"
	"log/slog"
	"sort"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// digestByDefault lists event types included in digests for users with no
// matching preference rows.
var digestByDefault = map[model.EventType]bool{
	model.EventTypeChatMessageSent:  true,
	model.EventTypeDocumentUploaded: true,
}

type Resolver struct {
	preferences store.PreferenceStore
}

func NewResolver(preferences store.PreferenceStore) *Resolver {
	return &Resolver{preferences: preferences}
}

// EventScope carries the scope IDs a preference row can match against.
type EventScope struct {
	ThreadID  *string
	ProjectID *string
}

// ScopeFromEvent extracts the preference scope from a domain event.
func ScopeFromEvent(event *model.DomainEvent) EventScope {
	return EventScope{ThreadID: event.ThreadID, ProjectID: event.ProjectID}
}

// IsMuted reports whether the user muted this event on this channel. The
// most specific matching row decides. Lookup errors are logged and resolve
// to not muted.
func (r *Resolver) IsMuted(ctx context.Context, userID string, scope EventScope, eventType model.EventType, channel model.Channel) bool {
	match := r.resolve(ctx, userID, scope, eventType, channel)
	if match == nil {
		return false
	}
	return match.Status == model.PreferenceStatusMuted
}

// ShouldIncludeInDigest reports whether the event belongs in the user's
// digest. Without a matching row, only digest-by-default event types
// qualify.
func (r *Resolver) ShouldIncludeInDigest(ctx context.Context, userID string, event *model.DomainEvent) bool {
	match := r.resolve(ctx, userID, ScopeFromEvent(event), event.EventType, model.ChannelEmail)
	if match == nil {
		return digestByDefault[event.EventType]
	}
	return match.Status == model.PreferenceStatusDigest
}

// resolve returns the winning preference row, or nil when none match.
func (r *Resolver) resolve(ctx context.Context, userID string, scope EventScope, eventType model.EventType, channel model.Channel) *model.NotificationPreference {
	rows, err := r.preferences.ListForUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "preference lookup failed, resolving open",
			"user_id", userID, "error", err)
		return nil
	}

	var candidates []model.NotificationPreference
	for _, p := range rows {
		if !matchesValue(p.EventType, string(eventType)) {
			continue
		}
		if !matchesValue(p.Channel, string(channel)) {
			continue
		}
		if !matchesScope(p, scope) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Most specific first: scope rank, then exact event type over
	// wildcard, then exact channel over wildcard.
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := scopeRank(candidates[i].ScopeType), scopeRank(candidates[j].ScopeType)
		if ri != rj {
			return ri < rj
		}
		if ei, ej := isExact(candidates[i].EventType), isExact(candidates[j].EventType); ei != ej {
			return ei
		}
		return isExact(candidates[i].Channel) && !isExact(candidates[j].Channel)
	})
	return &candidates[0]
}

func matchesValue(pref, actual string) bool {
	return pref == model.Wildcard || pref == actual
}

func matchesScope(p model.NotificationPreference, scope EventScope) bool {
	switch p.ScopeType {
	case model.ScopeThread:
		return scope.ThreadID != nil && p.ScopeID != nil && *p.ScopeID == *scope.ThreadID
	case model.ScopeProject:
		return scope.ProjectID != nil && p.ScopeID != nil && *p.ScopeID == *scope.ProjectID
	case model.ScopeGlobal:
		return true
	}
	return false
}

func scopeRank(s model.PreferenceScope) int {
	switch s {
	case model.ScopeThread:
		return 0
	case model.ScopeProject:
		return 1
	default:
		return 2
	}
}

func isExact(v string) bool {
	return v != model.Wildcard
}

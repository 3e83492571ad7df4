package prefs_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/prefs"
)

func strPtr(s string) *string { return &s }

func pref(scope model.PreferenceScope, scopeID *string, eventType, channel string, status model.PreferenceStatus) model.NotificationPreference {
	return model.NotificationPreference{
		UserID:    "user-1",
		ScopeType: scope,
		ScopeID:   scopeID,
		EventType: eventType,
		Channel:   channel,
		Status:    status,
	}
}

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		store    *mockPreferenceStore
		resolver *prefs.Resolver
		scope    prefs.EventScope
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &mockPreferenceStore{}
		resolver = prefs.NewResolver(store)
		scope = prefs.EventScope{
			ThreadID:  strPtr("thread-1"),
			ProjectID: strPtr("project-1"),
		}
	})

	Describe("IsMuted", func() {
		It("returns false when no rows match", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return nil, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})

		It("honors a global wildcard mute", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, "*", "*", model.PreferenceStatusMuted),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeDocumentUploaded, model.ChannelInApp)).To(BeTrue())
		})

		It("lets a thread row override a project row", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeProject, strPtr("project-1"), "*", "*", model.PreferenceStatusMuted),
					pref(model.ScopeThread, strPtr("thread-1"), "*", "*", model.PreferenceStatusInstant),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})

		It("lets a project row override a global row", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, "*", "*", model.PreferenceStatusInstant),
					pref(model.ScopeProject, strPtr("project-1"), "*", "*", model.PreferenceStatusMuted),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeTrue())
		})

		It("prefers an exact event type over a wildcard at the same scope", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, "*", "*", model.PreferenceStatusMuted),
					pref(model.ScopeGlobal, nil, string(model.EventTypeChatMessageSent), "*", model.PreferenceStatusInstant),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})

		It("prefers an exact channel over a wildcard at the same scope", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, "*", "*", model.PreferenceStatusInstant),
					pref(model.ScopeGlobal, nil, "*", string(model.ChannelEmail), model.PreferenceStatusMuted),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeTrue())
			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelInApp)).To(BeFalse())
		})

		It("ignores thread rows for a different thread", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeThread, strPtr("thread-other"), "*", "*", model.PreferenceStatusMuted),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})

		It("ignores channel rows that do not match", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, "*", string(model.ChannelInApp), model.PreferenceStatusMuted),
				}, nil
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})

		It("resolves open when the store fails", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return nil, errors.New("connection refused")
			}

			Expect(resolver.IsMuted(ctx, "user-1", scope, model.EventTypeChatMessageSent, model.ChannelEmail)).To(BeFalse())
		})
	})

	Describe("ShouldIncludeInDigest", func() {
		event := func(t model.EventType) *model.DomainEvent {
			return &model.DomainEvent{
				ID:        1,
				EventType: t,
				ProjectID: strPtr("project-1"),
			}
		}

		It("includes chat messages by default", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return nil, nil
			}

			Expect(resolver.ShouldIncludeInDigest(ctx, "user-1", event(model.EventTypeChatMessageSent))).To(BeTrue())
			Expect(resolver.ShouldIncludeInDigest(ctx, "user-1", event(model.EventTypeDocumentUploaded))).To(BeTrue())
		})

		It("excludes non-default event types without a matching row", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return nil, nil
			}

			Expect(resolver.ShouldIncludeInDigest(ctx, "user-1", event(model.EventTypeMeetingInvited))).To(BeFalse())
		})

		It("follows an explicit digest row", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, string(model.EventTypeMeetingInvited), string(model.ChannelEmail), model.PreferenceStatusDigest),
				}, nil
			}

			Expect(resolver.ShouldIncludeInDigest(ctx, "user-1", event(model.EventTypeMeetingInvited))).To(BeTrue())
		})

		It("excludes a default type the user switched to instant", func() {
			store.listForUserFn = func(_ context.Context, _ string) ([]model.NotificationPreference, error) {
				return []model.NotificationPreference{
					pref(model.ScopeGlobal, nil, string(model.EventTypeChatMessageSent), string(model.ChannelEmail), model.PreferenceStatusInstant),
				}, nil
			}

			Expect(resolver.ShouldIncludeInDigest(ctx, "user-1", event(model.EventTypeChatMessageSent))).To(BeFalse())
		})
	})
})

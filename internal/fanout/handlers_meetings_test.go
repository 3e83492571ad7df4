package fanout_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/model"
)

var _ = Describe("meeting handlers", func() {
	var (
		ctx  context.Context
		deps *testDeps
	)

	BeforeEach(func() {
		ctx = context.Background()
		deps = newTestDeps()
		deps.meetings.getByIDFn = func(_ context.Context, id string) (*model.Meeting, error) {
			return &model.Meeting{
				ID:          id,
				ProjectID:   "project-1",
				OrganizerID: "organizer",
				Title:       "Kickoff call",
				StartsAt:    time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC),
			}, nil
		}
	})

	It("notifies only the invitee on meeting_invited", func() {
		event := &model.DomainEvent{
			ID:        500,
			EventType: model.EventTypeMeetingInvited,
			ActorID:   strPtr("organizer"),
			ProjectID: strPtr("project-1"),
			MeetingID: strPtr("meeting-1"),
			Payload:   json.RawMessage(`{"invitee_user_id":"member-1"}`),
		}

		result, err := deps.handlers.Registry()[model.EventTypeMeetingInvited](ctx, event)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Notifications).To(Equal(1))
		Expect(result.Emails).To(Equal(0))
		n := deps.notifications.inserted[0]
		Expect(n.UserID).To(Equal("member-1"))
		Expect(n.Title).To(Equal("You were invited to Kickoff call"))
		Expect(n.Body).To(ContainSubstring("Starts at"))
		Expect(n.LinkURL).To(ContainSubstring("/projects/project-1/meetings"))
	})

	It("notifies participants except the organizer on meeting_updated", func() {
		deps.meetings.listParticipantIDsFn = func(_ context.Context, _ string) ([]string, error) {
			return []string{"organizer", "member-1", "member-2"}, nil
		}
		event := &model.DomainEvent{
			ID:        501,
			EventType: model.EventTypeMeetingUpdated,
			ActorID:   strPtr("organizer"),
			ProjectID: strPtr("project-1"),
			MeetingID: strPtr("meeting-1"),
		}

		result, err := deps.handlers.Registry()[model.EventTypeMeetingUpdated](ctx, event)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Notifications).To(Equal(2))
		for _, n := range deps.notifications.inserted {
			Expect(n.UserID).NotTo(Equal("organizer"))
			Expect(n.Title).To(Equal("Kickoff call was updated"))
		}
	})

	It("reminds the single user named in a meeting_reminder event", func() {
		event := &model.DomainEvent{
			ID:        502,
			EventType: model.EventTypeMeetingReminder,
			ProjectID: strPtr("project-1"),
			MeetingID: strPtr("meeting-1"),
			Payload:   json.RawMessage(`{"user_id":"member-1"}`),
		}

		result, err := deps.handlers.Registry()[model.EventTypeMeetingReminder](ctx, event)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Notifications).To(Equal(1))
		Expect(deps.notifications.inserted[0].Title).To(Equal("Kickoff call starts soon"))
	})
})

var _ = Describe("handleResumeNudge", func() {
	var (
		ctx  context.Context
		deps *testDeps
	)

	nudgeEvent := func() *model.DomainEvent {
		return &model.DomainEvent{
			ID:        600,
			EventType: model.EventTypeResumeIncompleteNudge,
			ProjectID: strPtr("project-1"),
			Payload:   json.RawMessage(`{"user_id":"owner-1","resume_kind":"borrower","tier":2}`),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		deps = newTestDeps()
		deps.projects.getByIDFn = func(_ context.Context, id string) (*model.Project, error) {
			return &model.Project{ID: id, Name: "Harborview", OwnerOrgID: "org-1"}, nil
		}
		deps.projects.isOrgOwnerFn = func(_ context.Context, _, _ string) (bool, error) {
			return true, nil
		}
	})

	It("inserts a notification and queues an immediate email", func() {
		result, err := deps.handlers.Registry()[model.EventTypeResumeIncompleteNudge](ctx, nudgeEvent())
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Notifications).To(Equal(1))
		Expect(result.Emails).To(Equal(1))

		n := deps.notifications.inserted[0]
		Expect(n.UserID).To(Equal("owner-1"))
		Expect(n.Title).To(Equal("Your borrower resume for Harborview is incomplete"))

		var payload model.NotificationPayload
		Expect(json.Unmarshal(n.Payload, &payload)).To(Succeed())
		Expect(*payload.Tier).To(Equal(2))
		Expect(*payload.ResumeKind).To(Equal(model.ResumeKindBorrower))

		Expect(deps.emails.enqueued[0].DeliveryType).To(Equal(model.DeliveryTypeImmediate))
	})

	It("skips users who are no longer org owners", func() {
		deps.projects.isOrgOwnerFn = func(_ context.Context, _, _ string) (bool, error) {
			return false, nil
		}

		result, err := deps.handlers.Registry()[model.EventTypeResumeIncompleteNudge](ctx, nudgeEvent())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Notifications).To(Equal(0))
		Expect(deps.notifications.inserted).To(BeEmpty())
	})

	It("skips tiers that were already delivered", func() {
		deps.notifications.resumeTierExists = true

		result, err := deps.handlers.Registry()[model.EventTypeResumeIncompleteNudge](ctx, nudgeEvent())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Notifications).To(Equal(0))
	})

	It("holds the email when the email channel is muted", func() {
		deps.prefs.muted[muteKey{"owner-1", model.ChannelEmail}] = true

		result, err := deps.handlers.Registry()[model.EventTypeResumeIncompleteNudge](ctx, nudgeEvent())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Notifications).To(Equal(1))
		Expect(result.Emails).To(Equal(0))
	})
})

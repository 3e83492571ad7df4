package nudge_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/nudge"
	"crewdeck.app/herald/internal/store"
)

var _ = Describe("ResumeScheduler", func() {
	var (
		events        *mockEventStore
		projects      *mockProjectStore
		resumes       *mockResumeStore
		notifications *mockNotificationStore
	)

	project := func(createdAt time.Time) model.Project {
		return model.Project{
			ID:         "project-1",
			Name:       "Harborview",
			OwnerOrgID: "org-1",
			CreatedAt:  createdAt,
		}
	}

	BeforeEach(func() {
		events = &mockEventStore{}
		resumes = &mockResumeStore{}
		notifications = &mockNotificationStore{}
		projects = &mockProjectStore{
			listOrgOwnerIDsFn: func(_ context.Context, orgID string) ([]string, error) {
				Expect(orgID).To(Equal("org-1"))
				return []string{"owner-1"}, nil
			},
		}
	})

	run := func() {
		scheduler := nudge.NewResumeScheduler(events, projects, resumes, notifications, false)
		Expect(scheduler.Run(context.Background())).To(Succeed())
	}

	It("appends a nudge per incomplete resume once a threshold has passed", func() {
		created := time.Now().Add(-25 * time.Hour)
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(created)}, nil
		}

		run()

		Expect(events.appended).To(HaveLen(2))
		for _, event := range events.appended {
			Expect(event.EventType).To(Equal(model.EventTypeResumeIncompleteNudge))
			Expect(event.ProjectID).To(HaveValue(Equal("project-1")))

			var payload map[string]any
			Expect(json.Unmarshal(event.Payload, &payload)).To(Succeed())
			Expect(payload["user_id"]).To(Equal("owner-1"))
			Expect(payload["tier"]).To(BeEquivalentTo(1))
		}
	})

	It("resets stale nudge tiers from the last edit before appending", func() {
		edit := time.Now().Add(-1 * time.Hour)
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-30 * 24 * time.Hour))}, nil
		}
		resumes.listActivityFn = func(_ context.Context, _ string) (map[string]model.ResumeActivity, error) {
			return map[string]model.ResumeActivity{
				"owner-1": {
					ProjectID:                "project-1",
					UserID:                   "owner-1",
					LastProjectResumeEditAt:  &edit,
					LastBorrowerResumeEditAt: &edit,
				},
			}, nil
		}

		run()

		Expect(events.appended).To(BeEmpty())
		Expect(notifications.resets).To(HaveLen(2))
		for _, reset := range notifications.resets {
			Expect(reset.userID).To(Equal("owner-1"))
			Expect(reset.before).To(BeTemporally("==", edit))
		}
	})

	It("tracks each owner's edit activity separately", func() {
		edit := time.Now().Add(-1 * time.Hour)
		created := time.Now().Add(-8 * 24 * time.Hour)
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(created)}, nil
		}
		projects.listOrgOwnerIDsFn = func(_ context.Context, _ string) ([]string, error) {
			return []string{"owner-1", "owner-2"}, nil
		}
		resumes.listActivityFn = func(_ context.Context, _ string) (map[string]model.ResumeActivity, error) {
			return map[string]model.ResumeActivity{
				"owner-1": {
					ProjectID:                "project-1",
					UserID:                   "owner-1",
					LastProjectResumeEditAt:  &edit,
					LastBorrowerResumeEditAt: &edit,
				},
			}, nil
		}

		run()

		// owner-1 edited an hour ago; owner-2 never did and sits at the
		// final tier for both resume kinds.
		Expect(events.appended).To(HaveLen(2))
		for _, event := range events.appended {
			var payload map[string]any
			Expect(json.Unmarshal(event.Payload, &payload)).To(Succeed())
			Expect(payload["user_id"]).To(Equal("owner-2"))
			Expect(payload["tier"]).To(BeEquivalentTo(4))
		}

		for _, reset := range notifications.resets {
			switch reset.userID {
			case "owner-1":
				Expect(reset.before).To(BeTemporally("==", edit))
			case "owner-2":
				Expect(reset.before).To(BeTemporally("==", created))
			}
		}
	})

	It("skips resumes already at full completeness", func() {
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-25 * time.Hour))}, nil
		}
		resumes.latestVersionFn = func(_ context.Context, _ string, kind model.ResumeKind) (*model.ResumeVersion, error) {
			if kind == model.ResumeKindBorrower {
				return &model.ResumeVersion{ResumeKind: kind, CompletenessPercent: 100}, nil
			}
			return nil, store.ErrNotFound
		}

		run()

		Expect(events.appended).To(HaveLen(1))
		var payload map[string]any
		Expect(json.Unmarshal(events.appended[0].Payload, &payload)).To(Succeed())
		Expect(payload["resume_kind"]).To(Equal("project"))
	})

	It("skips tiers that were already nudged", func() {
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-25 * time.Hour))}, nil
		}
		notifications.existingTiers = map[nudgeTierKey]bool{
			{userID: "owner-1", kind: model.ResumeKindProject, tier: 1}: true,
		}

		run()

		Expect(events.appended).To(HaveLen(1))
		var payload map[string]any
		Expect(json.Unmarshal(events.appended[0].Payload, &payload)).To(Succeed())
		Expect(payload["resume_kind"]).To(Equal("borrower"))
	})

	It("picks the highest threshold passed", func() {
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-8 * 24 * time.Hour))}, nil
		}

		run()

		Expect(events.appended).To(HaveLen(2))
		var payload map[string]any
		Expect(json.Unmarshal(events.appended[0].Payload, &payload)).To(Succeed())
		Expect(payload["tier"]).To(BeEquivalentTo(4))
	})

	It("appends nothing in dry run mode", func() {
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-25 * time.Hour))}, nil
		}

		scheduler := nudge.NewResumeScheduler(events, projects, resumes, notifications, true)
		Expect(scheduler.Run(context.Background())).To(Succeed())

		Expect(events.appended).To(BeEmpty())
	})

	It("skips projects whose org has no owners", func() {
		projects.listFn = func(_ context.Context) ([]model.Project, error) {
			return []model.Project{project(time.Now().Add(-25 * time.Hour))}, nil
		}
		projects.listOrgOwnerIDsFn = func(_ context.Context, _ string) ([]string, error) {
			return nil, nil
		}

		run()

		Expect(events.appended).To(BeEmpty())
		Expect(notifications.resets).To(BeEmpty())
	})
})

package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/http/handler"
	"crewdeck.app/herald/internal/permdiff"
)

var _ = Describe("PermissionsHandler", func() {
	var (
		applier *mockApplier
		engine  *gin.Engine
	)

	BeforeEach(func() {
		applier = &mockApplier{}
		perms := handler.NewPermissionsHandler(applier)
		engine = gin.New()
		engine.POST("/orgs/:org_id/members/:user_id/permissions", perms.Apply)
	})

	apply := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/orgs/org-1/members/member-1/permissions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)
		return w
	}

	It("applies the change for the addressed org and user", func() {
		applier.applyFn = func(_ context.Context, _ *permdiff.Change) (*permdiff.Outcome, error) {
			return &permdiff.Outcome{Granted: 1, EventsEmitted: 1}, nil
		}

		w := apply(`{
			"actor_id": "admin-1",
			"project_grants": [{"project_id": "project-1", "action": "grant", "level": "view"}]
		}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"granted":1`))

		Expect(applier.applied).To(HaveLen(1))
		change := applier.applied[0]
		Expect(change.OrgID).To(Equal("org-1"))
		Expect(change.UserID).To(Equal("member-1"))
		Expect(change.ActorID).To(Equal("admin-1"))
		Expect(change.ProjectGrants).To(HaveLen(1))
		Expect(change.ProjectGrants[0].Action).To(Equal(permdiff.ActionGrant))
	})

	It("rejects a request without an actor", func() {
		w := apply(`{"project_grants": [{"project_id": "project-1", "action": "grant"}]}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(applier.applied).To(BeEmpty())
	})

	It("rejects a request with no changes", func() {
		w := apply(`{"actor_id": "admin-1"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("no changes provided"))
	})

	It("rejects malformed JSON", func() {
		Expect(apply(`{"actor_id": `).Code).To(Equal(http.StatusBadRequest))
	})

	It("maps engine failures to a 500", func() {
		applier.applyFn = func(_ context.Context, _ *permdiff.Change) (*permdiff.Outcome, error) {
			return nil, errors.New("tx aborted")
		}

		w := apply(`{
			"actor_id": "admin-1",
			"document_permissions": [{"resource_id": "file-1", "project_id": "project-1", "level": "edit"}]
		}`)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})

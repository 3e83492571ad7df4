package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/http/handler"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

var _ = Describe("OpsHandler", func() {
	var (
		events *mockEventAdminStore
		engine *gin.Engine
	)

	BeforeEach(func() {
		events = &mockEventAdminStore{}
		ops := handler.NewOpsHandler(events)
		engine = gin.New()
		engine.GET("/ops/events/failed", ops.ListFailed)
		engine.POST("/ops/events/:id/redrive", ops.Redrive)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		engine.ServeHTTP(w, req)
		return w
	}

	post := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		engine.ServeHTTP(w, req)
		return w
	}

	Describe("ListFailed", func() {
		It("lists failed processing records with the default limit", func() {
			msg := "handler panicked"
			events.listFailedFn = func(_ context.Context, limit int32) ([]model.ProcessingRecord, error) {
				Expect(limit).To(Equal(int32(100)))
				return []model.ProcessingRecord{
					{EventID: 101, Status: model.ProcessingStatusFailed, ErrorMessage: &msg},
				}, nil
			}

			w := get("/ops/events/failed")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"count":1`))
			Expect(w.Body.String()).To(ContainSubstring("handler panicked"))
		})

		It("honors an explicit limit", func() {
			events.listFailedFn = func(_ context.Context, limit int32) ([]model.ProcessingRecord, error) {
				Expect(limit).To(Equal(int32(25)))
				return nil, nil
			}

			Expect(get("/ops/events/failed?limit=25").Code).To(Equal(http.StatusOK))
		})

		It("rejects out-of-range limits", func() {
			Expect(get("/ops/events/failed?limit=0").Code).To(Equal(http.StatusBadRequest))
			Expect(get("/ops/events/failed?limit=5000").Code).To(Equal(http.StatusBadRequest))
			Expect(get("/ops/events/failed?limit=abc").Code).To(Equal(http.StatusBadRequest))
		})

		It("maps store failures to a 500", func() {
			events.listFailedFn = func(_ context.Context, _ int32) ([]model.ProcessingRecord, error) {
				return nil, errors.New("connection refused")
			}

			Expect(get("/ops/events/failed").Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Redrive", func() {
		It("deletes the processing record for the event", func() {
			w := post("/ops/events/42/redrive")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"redriven":true`))
			Expect(events.deleted).To(Equal([]int64{42}))
		})

		It("rejects a non-numeric event id", func() {
			Expect(post("/ops/events/not-a-number/redrive").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when there is no processing record", func() {
			events.deleteFn = func(_ context.Context, _ int64) error {
				return store.ErrNotFound
			}

			Expect(post("/ops/events/42/redrive").Code).To(Equal(http.StatusNotFound))
		})

		It("maps store failures to a 500", func() {
			events.deleteFn = func(_ context.Context, _ int64) error {
				return errors.New("connection refused")
			}

			Expect(post("/ops/events/42/redrive").Code).To(Equal(http.StatusInternalServerError))
		})
	})
})

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// EventAdminStore is the slice of store.EventStore the ops surface needs.
type EventAdminStore interface {
	ListFailed(ctx context.Context, limit int32) ([]model.ProcessingRecord, error)
	DeleteProcessingRecord(ctx context.Context, eventID int64) error
}

// OpsHandler exposes the operator re-drive surface: inspect failed
// processing records and release them back to the fan-out loop.
type OpsHandler struct {
	events EventAdminStore
}

func NewOpsHandler(events EventAdminStore) *OpsHandler {
	return &OpsHandler{events: events}
}

func (h *OpsHandler) ListFailed(c *gin.Context) {
	ctx := c.Request.Context()

	limit := int32(100)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 1 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = int32(parsed)
	}

	records, err := h.events.ListFailed(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "listing failed events errored", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failed": records, "count": len(records)})
}

// Redrive deletes a failed processing record; the next fan-out run will
// see the event as unclaimed and process it again.
func (h *OpsHandler) Redrive(c *gin.Context) {
	ctx := c.Request.Context()

	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	if err := h.events.DeleteProcessingRecord(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no processing record for event"})
			return
		}
		slog.ErrorContext(ctx, "redrive failed", "event_id", eventID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to redrive event"})
		return
	}

	slog.InfoContext(ctx, "event released for redrive", "event_id", eventID)
	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "redriven": true})
}

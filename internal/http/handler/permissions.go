package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"crewdeck.app/herald/internal/permdiff"
)

// PermissionApplier is implemented by permdiff.Engine.
type PermissionApplier interface {
	Apply(ctx context.Context, change *permdiff.Change) (*permdiff.Outcome, error)
}

type PermissionsHandler struct {
	engine PermissionApplier
}

func NewPermissionsHandler(engine PermissionApplier) *PermissionsHandler {
	return &PermissionsHandler{engine: engine}
}

type applyPermissionsRequest struct {
	ActorID             string                              `json:"actor_id" binding:"required"`
	ProjectGrants       []permdiff.ProjectGrantChange       `json:"project_grants"`
	DocumentPermissions []permdiff.DocumentPermissionChange `json:"document_permissions"`
}

// Apply runs a bulk permission mutation for one user and reports the
// resulting diff.
func (h *PermissionsHandler) Apply(c *gin.Context) {
	ctx := c.Request.Context()

	var req applyPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid permissions request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.ProjectGrants) == 0 && len(req.DocumentPermissions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no changes provided"})
		return
	}

	outcome, err := h.engine.Apply(ctx, &permdiff.Change{
		OrgID:               c.Param("org_id"),
		UserID:              c.Param("user_id"),
		ActorID:             req.ActorID,
		ProjectGrants:       req.ProjectGrants,
		DocumentPermissions: req.DocumentPermissions,
	})
	if err != nil {
		slog.ErrorContext(ctx, "applying permission change failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply permission change"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

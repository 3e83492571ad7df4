package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crewdeck.app/herald/internal/http/handler"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, ops *handler.OpsHandler, perms *handler.PermissionsHandler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1", adminAuth(cfg.AdminAPIKey))
	{
		v1.GET("/ops/events/failed", ops.ListFailed)
		v1.POST("/ops/events/:id/redrive", ops.Redrive)

		v1.POST("/orgs/:org_id/members/:user_id/permissions", perms.Apply)
	}
}

// adminAuth guards the operator surface with a static API key header.
func adminAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" || c.GetHeader("X-Admin-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

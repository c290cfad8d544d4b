// internal/handlers/health.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmaguard-back/internal/analysis"
)

// Health reports service liveness plus reachability of the delegated
// analysis service.
func Health(client *analysis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"analysis_service": client.Health(c.Request.Context()),
		})
	}
}

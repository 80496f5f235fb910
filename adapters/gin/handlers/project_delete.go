package handlers

import (
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleProjectDELETE(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLProjectsWrite) {
			ginutil.TooMany(c)
			return
		}
		if err := svc.DeleteProject(c.Request.Context(), p, c.Param("id")); err != nil {
			writeErr(c, "failed_to_delete_project", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

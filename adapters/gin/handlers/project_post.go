package handlers

import (
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleProjectPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLProjectsWrite) {
			ginutil.TooMany(c)
			return
		}
		var req core.ProjectCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.InvalidInput(c, err)
			return
		}
		proj, err := svc.CreateProject(c.Request.Context(), p, req)
		if err != nil {
			writeErr(c, "failed_to_create_project", err)
			return
		}
		c.JSON(http.StatusCreated, proj)
	}
}

package handlers

import (
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleUsersGET(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLUsersRead) {
			ginutil.TooMany(c)
			return
		}
		first, err := queryInt(c, "first")
		if err != nil {
			ginutil.BadRequest(c, "invalid_first")
			return
		}
		conn, err := svc.ListUsers(c.Request.Context(), p, first, c.Query("after"))
		if err != nil {
			writeErr(c, "failed_to_list_users", err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

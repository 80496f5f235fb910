package handlers

import (
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleUserGET(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLUsersRead) {
			ginutil.TooMany(c)
			return
		}
		u, err := svc.GetUser(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			writeErr(c, "failed_to_get_user", err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

package handlers

import (
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleMeGET(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		user, err := svc.Me(c.Request.Context(), p)
		if err != nil {
			writeErr(c, "failed_to_load_user", err)
			return
		}
		view, _ := ginutil.CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user": user, "identity": view})
	}
}

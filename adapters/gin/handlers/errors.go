package handlers

import (
	"errors"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

// writeErr maps service errors onto responses.
func writeErr(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidCursor):
		ginutil.BadRequest(c, "invalid_cursor")
	case errors.Is(err, core.ErrInvalidInput):
		ginutil.InvalidInput(c, err)
	case errors.Is(err, core.ErrNotFound):
		ginutil.NotFound(c)
	case errors.Is(err, core.ErrForbidden):
		ginutil.Forbidden(c)
	default:
		ginutil.ServerErrWithLog(c, code, err)
	}
}

// caller returns the principal or aborts with 401.
func caller(c *gin.Context) (core.Principal, bool) {
	p, ok := ginutil.Principal(c)
	if !ok || p.ID == "" {
		ginutil.Unauthorized(c, "unauthorized")
		return core.Principal{}, false
	}
	return p, true
}

// Package ginutil holds the response helpers, context accessors and rate
// limit glue shared by the gin adapter and its handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/PaulFidika/projectkit/core"
	"github.com/PaulFidika/projectkit/observability"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Context keys set by the auth middleware.
const (
	KeyUserID    = "auth.user_id"
	KeyIdentity  = "auth.identity"
	KeyPrincipal = "auth.principal"
	KeyLogger    = "log"
)

// Rate limit bucket names.
const (
	RLProjectsRead  = "projects_read"
	RLProjectsWrite = "projects_write"
	RLUsersRead     = "users_read"
)

// RateLimiter is implemented by the memory and redis limiters.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed checks bucket for the caller, keyed by user id when
// authenticated and client IP otherwise. Limiter errors fail open.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := c.GetString(KeyUserID)
	if key == "" {
		key = c.ClientIP()
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, key)
	if err != nil {
		Logger(c).WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	if !ok {
		observability.RateLimitRejectedTotal.WithLabelValues(bucket).Inc()
	}
	return ok
}

// SetPrincipal stores the verified caller on the request context.
func SetPrincipal(c *gin.Context, id *oidckit.Identity, p core.Principal) {
	c.Set(KeyUserID, p.ID)
	c.Set(KeyIdentity, id)
	c.Set(KeyPrincipal, p)
}

// Principal returns the caller set by the auth middleware.
func Principal(c *gin.Context) (core.Principal, bool) {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return core.Principal{}, false
	}
	p, ok := v.(core.Principal)
	return p, ok
}

// Identity returns the verified token identity set by the auth middleware.
func Identity(c *gin.Context) (*oidckit.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*oidckit.Identity)
	return id, ok && id != nil
}

// Logger returns the request-scoped logger, or the standard logger.
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(KeyLogger); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}

func abort(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

func BadRequest(c *gin.Context, code string) { abort(c, http.StatusBadRequest, code) }

// InvalidInput reports a validation failure with its message.
func InvalidInput(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
}

func Unauthorized(c *gin.Context, code string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	abort(c, http.StatusUnauthorized, code)
}

func Forbidden(c *gin.Context) { abort(c, http.StatusForbidden, "forbidden") }

func NotFound(c *gin.Context) { abort(c, http.StatusNotFound, "not_found") }

func TooMany(c *gin.Context) { abort(c, http.StatusTooManyRequests, "rate_limited") }

func ServiceUnavailable(c *gin.Context, code string) {
	c.Header("Retry-After", "5")
	abort(c, http.StatusServiceUnavailable, code)
}

func ServerErr(c *gin.Context, code string) { abort(c, http.StatusInternalServerError, code) }

// ServerErrWithLog logs err against the request and writes a 500 with code.
func ServerErrWithLog(c *gin.Context, code string, err error) {
	Logger(c).WithError(err).WithField("code", code).Error("request failed")
	ServerErr(c, code)
}

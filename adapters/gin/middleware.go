// Package authgin wires token verification and the project API into gin.
package authgin

import (
	"context"
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	"github.com/gin-gonic/gin"
)

// Authenticator verifies the credentials on a request.
type Authenticator interface {
	VerifyRequest(ctx context.Context, h http.Header) (*oidckit.Identity, error)
}

// AuthConfig configures AuthRequired.
type AuthConfig struct {
	Verifier Authenticator
	Roles    core.RoleResolver
	// Service, when set, provisions the caller's user record.
	Service *core.Service
	Events  core.AuthEventLogger
}

// AuthRequired rejects requests without a valid bearer token. Verification
// failures answer 401 unauthorized, except when the signing keys cannot be
// loaded, which answers 503 auth_unavailable.
func AuthRequired(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := cfg.Verifier.VerifyRequest(ctx, c.Request.Header)
		if err != nil {
			if oidckit.StatusOf(err) == http.StatusServiceUnavailable {
				ginutil.ServiceUnavailable(c, "auth_unavailable")
				return
			}
			ginutil.Unauthorized(c, "unauthorized")
			return
		}

		p := cfg.Roles.Principal(id)
		ginutil.SetPrincipal(c, id, p)
		log := ginutil.Logger(c).WithField("user_id", p.ID)
		c.Set(ginutil.KeyLogger, log)

		if cfg.Service != nil {
			if err := cfg.Service.EnsureUser(ctx, p); err != nil {
				log.WithError(err).Warn("user provisioning failed")
			}
		}
		if cfg.Events != nil {
			if err := cfg.Events.LogAuthentication(ctx, p, c.Request.Method, c.FullPath(), c.ClientIP(), c.Request.UserAgent()); err != nil {
				log.WithError(err).Debug("auth event not recorded")
			}
		}
		c.Next()
	}
}

// RequireRole rejects callers whose resolved role is not in roles.
func RequireRole(roles ...core.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := ginutil.Principal(c)
		if !ok {
			ginutil.Unauthorized(c, "unauthorized")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		ginutil.Forbidden(c)
	}
}

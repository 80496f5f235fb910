package authgin

import (
	"context"
	"net/http"

	"github.com/PaulFidika/projectkit/adapters/gin/handlers"
	"github.com/PaulFidika/projectkit/adapters/ginutil"
	authhttp "github.com/PaulFidika/projectkit/adapters/http"
	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Auth    AuthConfig
	Service *core.Service
	Limiter ginutil.RateLimiter
	Log     logrus.FieldLogger
	// Keys, when set, is published at /keys.
	Keys *oidckit.KeySetCache
	// Ready, when set, backs /readyz.
	Ready func(ctx context.Context) error
}

// NewRouter builds the engine with health, metrics and the /api routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Observe(d.Log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				ginutil.Logger(c).WithError(err).Warn("not ready")
				ginutil.ServiceUnavailable(c, "not_ready")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Keys != nil {
		r.GET("/keys", gin.WrapH(authhttp.KeySetHandler(d.Keys)))
	}

	Register(r.Group("/api"), d)
	return r
}

// Register mounts the authenticated API on g.
func Register(g *gin.RouterGroup, d Deps) {
	if d.Auth.Service == nil {
		d.Auth.Service = d.Service
	}
	g.Use(AuthRequired(d.Auth))

	g.GET("/me", handlers.HandleMeGET(d.Service))

	g.GET("/projects", handlers.HandleProjectsGET(d.Service, d.Limiter))
	g.POST("/projects", handlers.HandleProjectPOST(d.Service, d.Limiter))
	g.GET("/projects/:id", handlers.HandleProjectGET(d.Service, d.Limiter))
	g.PATCH("/projects/:id", handlers.HandleProjectPATCH(d.Service, d.Limiter))
	g.DELETE("/projects/:id", handlers.HandleProjectDELETE(d.Service, d.Limiter))

	users := g.Group("/users")
	users.GET("", RequireRole(core.RoleAdmin, core.RoleManager), handlers.HandleUsersGET(d.Service, d.Limiter))
	users.GET("/:id", handlers.HandleUserGET(d.Service, d.Limiter))
}

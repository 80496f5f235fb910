package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func HandleProjectsGET(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := caller(c)
		if !ok {
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLProjectsRead) {
			ginutil.TooMany(c)
			return
		}
		first, err := queryInt(c, "first")
		if err != nil {
			ginutil.BadRequest(c, "invalid_first")
			return
		}
		f, err := projectFilter(c)
		if err != nil {
			ginutil.InvalidInput(c, err)
			return
		}
		conn, err := svc.ListProjects(c.Request.Context(), p, f, first, c.Query("after"))
		if err != nil {
			writeErr(c, "failed_to_list_projects", err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func projectFilter(c *gin.Context) (core.ProjectFilter, error) {
	f := core.ProjectFilter{
		OwnerID: strings.TrimSpace(c.Query("owner_id")),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	if s := c.Query("status"); s != "" {
		v, err := core.ParseProjectStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = v
	}
	if s := c.Query("priority"); s != "" {
		v, err := core.ParseProjectPriority(s)
		if err != nil {
			return f, err
		}
		f.Priority = v
	}
	for _, raw := range c.QueryArray("tags") {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	return f, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(c *gin.Context, name string) (int, error) {
	s := c.Query(name)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

package ginutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaulFidika/projectkit/core"
	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

type stubLimiter struct {
	allow   bool
	err     error
	lastKey string
}

func (s *stubLimiter) AllowNamed(_ context.Context, _ string, key string) (bool, error) {
	s.lastKey = key
	return s.allow, s.err
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:1234"
	return c, w
}

func TestAllowNamed_KeysByUserThenIP(t *testing.T) {
	rl := &stubLimiter{allow: true}
	c, _ := newContext()
	if !AllowNamed(c, rl, RLProjectsRead) {
		t.Fatalf("expected allow")
	}
	if rl.lastKey != "203.0.113.9" {
		t.Fatalf("expected client ip key, got %q", rl.lastKey)
	}
	SetPrincipal(c, nil, core.Principal{ID: "alice"})
	AllowNamed(c, rl, RLProjectsRead)
	if rl.lastKey != "alice" {
		t.Fatalf("expected user key, got %q", rl.lastKey)
	}
}

func TestAllowNamed_FailsOpen(t *testing.T) {
	c, _ := newContext()
	if !AllowNamed(c, &stubLimiter{err: errors.New("redis down")}, RLUsersRead) {
		t.Fatalf("limiter errors should not block requests")
	}
	if AllowNamed(c, &stubLimiter{allow: false}, RLUsersRead) {
		t.Fatalf("expected deny")
	}
}

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		name   string
		write  func(*gin.Context)
		status int
		body   string
	}{
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "unauthorized") }, 401, `{"error":"unauthorized"}`},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, "auth_unavailable") }, 503, `{"error":"auth_unavailable"}`},
		{"not found", NotFound, 404, `{"error":"not_found"}`},
		{"invalid input", func(c *gin.Context) { InvalidInput(c, errors.New("name required")) }, 400, `{"error":"invalid_input","message":"name required"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newContext()
			tc.write(c)
			if w.Code != tc.status || w.Body.String() != tc.body {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
			if !c.IsAborted() {
				t.Fatalf("expected the context to be aborted")
			}
		})
	}
}

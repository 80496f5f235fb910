package authgin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PaulFidika/projectkit/authtest"
	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	memorylimiter "github.com/PaulFidika/projectkit/ratelimit/memory"
	memorystore "github.com/PaulFidika/projectkit/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	idp    *authtest.Issuer
	router *gin.Engine
	store  *memorystore.Store
}

func newFixture(t *testing.T, limits map[string]memorylimiter.Limit) *fixture {
	t.Helper()
	idp := authtest.NewIssuer("tenant-1", "client-1")
	t.Cleanup(idp.Close)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	v, err := oidckit.NewVerifier(oidckit.Config{
		TenantID:   idp.TenantID(),
		ClientID:   idp.ClientID(),
		Authority:  idp.URL(),
		HTTPClient: idp.HTTPClient(),
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	store := memorystore.NewStore()
	svc := core.NewService(store, core.WithServiceLogger(log))
	deps := Deps{
		Auth:    AuthConfig{Verifier: v, Roles: core.RoleResolver{ManagerGroupID: "g-mgr"}, Events: core.LogrusAuthEvents{Log: log}},
		Service: svc,
		Log:     log,
	}
	if limits != nil {
		deps.Limiter = memorylimiter.New(limits)
	}
	return &fixture{idp: idp, router: NewRouter(deps), store: store}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	f := newFixture(t, nil)
	if w := f.do(http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/metrics", "", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired", "Bearer " + f.idp.ExpiredUserToken("u1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized || w.Body.String() != `{"error":"unauthorized"}` {
				t.Fatalf("expected generic 401, got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAuth_ProviderDownIs503(t *testing.T) {
	f := newFixture(t, nil)
	f.idp.SetFailing(true)
	w := f.do(http.MethodGet, "/api/me", f.idp.UserToken("u1", "a@b.com", "A", nil), nil)
	if w.Code != http.StatusServiceUnavailable || w.Body.String() != `{"error":"auth_unavailable"}` {
		t.Fatalf("expected 503, got %d %s", w.Code, w.Body.String())
	}
}

func TestMe_ProvisionsUser(t *testing.T) {
	f := newFixture(t, nil)
	token := f.idp.UserToken("u1", "a@b.com", "Ada", []string{"Developer"})
	w := f.do(http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		User     core.User `json:"user"`
		Identity struct {
			UserID    string   `json:"user_id"`
			TokenType string   `json:"token_type"`
			Role      string   `json:"role"`
			Scopes    []string `json:"scopes"`
		} `json:"identity"`
	}
	decode(t, w, &body)
	if body.User.ID != "u1" || body.User.Email != "a@b.com" || body.User.Role != core.RoleDeveloper {
		t.Fatalf("unexpected user %+v", body.User)
	}
	if body.Identity.TokenType != "user" || len(body.Identity.Scopes) != 2 {
		t.Fatalf("unexpected identity %+v", body.Identity)
	}
	if _, err := f.store.GetUser(context.Background(), "u1"); err != nil {
		t.Fatalf("expected user to be provisioned: %v", err)
	}
}

func TestProjects_CRUD(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.idp.UserToken("u1", "a@b.com", "Ada", []string{"Developer"})
	other := f.idp.UserToken("u2", "c@d.com", "Cy", nil)

	w := f.do(http.MethodPost, "/api/projects", owner, map[string]any{"name": "Apollo", "priority": "high", "tags": []string{"space"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created core.Project
	decode(t, w, &created)
	if created.OwnerID != "u1" || created.Priority != core.PriorityHigh {
		t.Fatalf("unexpected project %+v", created)
	}

	if w := f.do(http.MethodGet, "/api/projects/"+created.ID, other, nil); w.Code != http.StatusNotFound {
		t.Fatalf("non-owner get: expected 404, got %d", w.Code)
	}
	if w := f.do(http.MethodPatch, "/api/projects/"+created.ID, other, map[string]any{"name": "x"}); w.Code != http.StatusNotFound {
		t.Fatalf("non-owner patch: expected 404, got %d", w.Code)
	}

	w = f.do(http.MethodPatch, "/api/projects/"+created.ID, owner, map[string]any{"status": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	var updated core.Project
	decode(t, w, &updated)
	if updated.Status != core.StatusCompleted || updated.Name != "Apollo" {
		t.Fatalf("unexpected update %+v", updated)
	}

	w = f.do(http.MethodGet, "/api/projects?status=COMPLETED&tags=space", owner, nil)
	var conn core.ProjectConnection
	decode(t, w, &conn)
	if w.Code != http.StatusOK || len(conn.Edges) != 1 || conn.PageInfo.TotalCount != 1 {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := f.do(http.MethodDelete, "/api/projects/"+created.ID, owner, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/projects/"+created.ID, owner, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestProjects_BadInput(t *testing.T) {
	f := newFixture(t, nil)
	token := f.idp.UserToken("u1", "a@b.com", "Ada", nil)
	cases := []struct {
		name, method, path string
		body               any
		want               string
	}{
		{"empty name", http.MethodPost, "/api/projects", map[string]any{"name": ""}, "invalid_input"},
		{"unknown status", http.MethodPost, "/api/projects", map[string]any{"name": "a", "status": "DONE"}, "invalid_input"},
		{"bad cursor", http.MethodGet, "/api/projects?after=zzz", nil, "invalid_cursor"},
		{"bad first", http.MethodGet, "/api/projects?first=ten", nil, "invalid_first"},
		{"bad filter", http.MethodGet, "/api/projects?priority=urgent", nil, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(tc.method, tc.path, token, tc.body)
			var body map[string]any
			decode(t, w, &body)
			if w.Code != http.StatusBadRequest || body["error"] != tc.want {
				t.Fatalf("expected 400 %s, got %d %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestUsers_RequirePrivilege(t *testing.T) {
	f := newFixture(t, nil)
	dev := f.idp.UserToken("u1", "a@b.com", "Ada", []string{"Developer"})
	mgr := f.idp.Sign(f.idp.Claims(map[string]any{"oid": "m1", "upn": "m@b.com", "groups": []string{"g-mgr"}}))

	if w := f.do(http.MethodGet, "/api/users", dev, nil); w.Code != http.StatusForbidden {
		t.Fatalf("developer list users: expected 403, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/users/u1", dev, nil); w.Code != http.StatusOK {
		t.Fatalf("self lookup: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodGet, "/api/users/m1", dev, nil); w.Code != http.StatusForbidden {
		t.Fatalf("other lookup: expected 403, got %d", w.Code)
	}
	w := f.do(http.MethodGet, "/api/users", mgr, nil)
	var conn core.UserConnection
	decode(t, w, &conn)
	if w.Code != http.StatusOK || conn.PageInfo.TotalCount != 2 {
		t.Fatalf("manager list users: %d %s", w.Code, w.Body.String())
	}
}

func TestApplicationToken_NotProvisioned(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/api/me", f.idp.AppToken("app-123", []string{"Admin"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		User core.User `json:"user"`
	}
	decode(t, w, &body)
	if body.User.Email != "app-app-123@tenant" || body.User.Role != core.RoleAdmin {
		t.Fatalf("unexpected app user %+v", body.User)
	}
	users, _, _, _ := f.store.ListUsers(context.Background(), 10, 0)
	if len(users) != 0 {
		t.Fatalf("application callers must not be provisioned")
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, map[string]memorylimiter.Limit{"projects_read": {Limit: 1, Window: time.Minute}})
	token := f.idp.UserToken("u1", "a@b.com", "Ada", nil)
	if w := f.do(http.MethodGet, "/api/projects", token, nil); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/projects", token, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: expected 429, got %d", w.Code)
	}
}

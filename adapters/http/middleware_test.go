package authhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaulFidika/projectkit/authtest"
	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	"github.com/sirupsen/logrus"
)

func newVerifier(t *testing.T, idp *authtest.Issuer) *oidckit.Verifier {
	t.Helper()
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
	return v
}

func TestRequireAuth(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newVerifier(t, idp)

	var seen core.Principal
	h := RequireAuth(v, core.RoleResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		if _, ok := IdentityFromContext(r.Context()); !ok {
			t.Errorf("identity missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+idp.UserToken("u1", "a@b.com", "Ada", []string{"Admin"}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %s", w.Code, w.Body.String())
	}
	if seen.ID != "u1" || seen.Role != core.RoleAdmin {
		t.Fatalf("unexpected principal %+v", seen)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "unauthorized" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	idp.SetFailing(true)
	fresh := RequireAuth(newVerifier(t, idp), core.RoleResolver{})(http.NotFoundHandler())
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+idp.UserToken("u1", "a@b.com", "Ada", nil))
	w = httptest.NewRecorder()
	fresh.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestKeySetHandler(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newVerifier(t, idp)

	w := httptest.NewRecorder()
	KeySetHandler(v.Keys()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/keys", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Keys) != 1 || doc.Keys[0].Kid != idp.KID() || doc.Keys[0].Kty != "RSA" {
		t.Fatalf("unexpected key set %s", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=3600, must-revalidate" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}

	etag := w.Header().Get("ETag")
	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	KeySetHandler(v.Keys()).ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

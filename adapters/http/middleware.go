// Package authhttp exposes token verification to plain net/http servers.
package authhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
)

// Authenticator verifies the credentials on a request.
type Authenticator interface {
	VerifyRequest(ctx context.Context, h http.Header) (*oidckit.Identity, error)
}

type ctxKey int

const (
	identityKey ctxKey = iota
	principalKey
)

// RequireAuth wraps next so it only runs for requests with a valid bearer
// token. Rejections carry a generic error code only.
func RequireAuth(v Authenticator, roles core.RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.VerifyRequest(r.Context(), r.Header)
			if err != nil {
				status := oidckit.StatusOf(err)
				code := "unauthorized"
				if status == http.StatusServiceUnavailable {
					code = "auth_unavailable"
				} else {
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				}
				writeError(w, status, code)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			ctx = context.WithValue(ctx, principalKey, roles.Principal(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (*oidckit.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*oidckit.Identity)
	return id, ok && id != nil
}

// PrincipalFromContext returns the caller stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey).(core.Principal)
	return p, ok
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// Package authtest runs a fake identity provider tenant for tests. It serves
// the tenant key set and OpenID configuration and signs access tokens that
// validate against them.
//
// Example usage:
//
//	idp := authtest.NewIssuer("tenant-1", "client-1")
//	defer idp.Close()
//
//	cfg := oidckit.Config{TenantID: idp.TenantID(), ClientID: idp.ClientID(), Authority: idp.URL()}
//	token := idp.UserToken("user-1", "user@example.com", "User One", []string{"Admin"})
package authtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwtkit "github.com/PaulFidika/projectkit/jwt"
	jwt "github.com/golang-jwt/jwt/v5"
)

// Issuer is a fake single-tenant provider.
type Issuer struct {
	server   *httptest.Server
	tenantID string
	clientID string
	fetches  atomic.Int32

	mu      sync.Mutex
	signer  *jwtkit.RSASigner
	rotated int
	failing bool
}

// NewIssuer starts the provider. Call Close when done.
func NewIssuer(tenantID, clientID string) *Issuer {
	iss := &Issuer{tenantID: tenantID, clientID: clientID}
	iss.signer = mustSigner("key-0")

	mux := http.NewServeMux()
	mux.HandleFunc("/"+tenantID+"/discovery/v2.0/keys", iss.handleKeys)
	mux.HandleFunc("/"+tenantID+"/v2.0/.well-known/openid-configuration", iss.handleDiscovery)
	iss.server = httptest.NewServer(mux)
	return iss
}

func mustSigner(kid string) *jwtkit.RSASigner {
	s, err := jwtkit.NewRSASigner(2048, kid)
	if err != nil {
		panic("authtest: failed to create RSA signer: " + err.Error())
	}
	return s
}

// URL is the authority base URL.
func (i *Issuer) URL() string { return i.server.URL }

func (i *Issuer) TenantID() string { return i.tenantID }
func (i *Issuer) ClientID() string { return i.clientID }

// IssuerURL is the iss value of every token this provider signs.
func (i *Issuer) IssuerURL() string { return i.server.URL + "/" + i.tenantID + "/v2.0" }

// KeysURL is where the key set is served.
func (i *Issuer) KeysURL() string { return i.server.URL + "/" + i.tenantID + "/discovery/v2.0/keys" }

// HTTPClient returns a client for the test server.
func (i *Issuer) HTTPClient() *http.Client { return i.server.Client() }

// Fetches counts key set requests served, failed ones included.
func (i *Issuer) Fetches() int { return int(i.fetches.Load()) }

// SetFailing makes the key set endpoint return 500.
func (i *Issuer) SetFailing(failing bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failing = failing
}

// Rotate replaces the signing key; the old key is no longer published.
func (i *Issuer) Rotate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.rotated++
	i.signer = mustSigner(fmt.Sprintf("key-%d", i.rotated))
}

// KID returns the kid of the current signing key.
func (i *Issuer) KID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.signer.KID()
}

// Close shuts down the test server.
func (i *Issuer) Close() {
	if i.server != nil {
		i.server.Close()
	}
}

func (i *Issuer) handleKeys(w http.ResponseWriter, r *http.Request) {
	i.fetches.Add(1)
	i.mu.Lock()
	failing := i.failing
	signer := i.signer
	i.mu.Unlock()
	if failing {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	jwk := jwtkit.RSAPublicToJWK(signer.PublicKey(), signer.KID(), signer.Algorithm())
	jwtkit.ServeJWKS(w, r, jwtkit.JWKS{Keys: []jwtkit.JWK{jwk}}, 0)
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":         i.server.URL + "/{tenantid}/v2.0",
		"jwks_uri":       i.KeysURL(),
		"token_endpoint": i.server.URL + "/" + i.tenantID + "/oauth2/v2.0/token",
	})
}

// Claims returns a valid claim set for this tenant with extra merged on top.
// A nil value in extra removes that claim.
func (i *Issuer) Claims(extra map[string]any) jwt.MapClaims {
	claims := jwtkit.BaseClaims(i.IssuerURL(), "subject", i.clientID, time.Hour)
	claims["tid"] = i.tenantID
	claims["ver"] = "2.0"
	for k, v := range extra {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

// Sign signs claims with the current published key.
func (i *Issuer) Sign(claims jwt.MapClaims) string {
	i.mu.Lock()
	signer := i.signer
	i.mu.Unlock()
	token, err := signer.Sign(context.Background(), claims)
	if err != nil {
		panic("authtest: failed to sign token: " + err.Error())
	}
	return token
}

// SignUnpublished signs claims with a fresh key under kid that the key set never lists.
func (i *Issuer) SignUnpublished(kid string, claims jwt.MapClaims) string {
	token, err := mustSigner(kid).Sign(context.Background(), claims)
	if err != nil {
		panic("authtest: failed to sign token: " + err.Error())
	}
	return token
}

// UserToken signs an interactive user token.
func (i *Issuer) UserToken(oid, upn, name string, roles []string) string {
	extra := map[string]any{
		"oid":  oid,
		"sub":  "sub-" + oid,
		"upn":  upn,
		"name": name,
		"scp":  "Projects.Read Projects.Write",
	}
	if len(roles) > 0 {
		extra["roles"] = roles
	}
	return i.Sign(i.Claims(extra))
}

// AppToken signs a client-credentials token for appID.
func (i *Issuer) AppToken(appID string, roles []string) string {
	extra := map[string]any{
		"oid":      "sp-" + appID,
		"sub":      "sp-" + appID,
		"appid":    appID,
		"appidacr": "1",
	}
	if len(roles) > 0 {
		extra["roles"] = roles
	}
	return i.Sign(i.Claims(extra))
}

// ExpiredUserToken signs a user token that expired an hour ago.
func (i *Issuer) ExpiredUserToken(oid string) string {
	past := time.Now().Add(-2 * time.Hour)
	return i.Sign(i.Claims(map[string]any{
		"oid": oid,
		"iat": past.Unix(),
		"nbf": past.Unix(),
		"exp": past.Add(time.Hour).Unix(),
	}))
}

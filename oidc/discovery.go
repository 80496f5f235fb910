package oidckit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Metadata is the subset of the tenant's OpenID configuration the verifier uses.
type Metadata struct {
	Issuer        string `json:"issuer"`
	JWKSURI       string `json:"jwks_uri"`
	TokenEndpoint string `json:"token_endpoint"`
}

// Discover loads <authority>/<tenant>/v2.0/.well-known/openid-configuration.
func Discover(ctx context.Context, client *http.Client, authority, tenantID string) (*Metadata, error) {
	authority = strings.TrimRight(strings.TrimSpace(authority), "/")
	if authority == "" {
		authority = DefaultAuthority
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("oidc: tenant id is empty")
	}
	if client == nil {
		client = http.DefaultClient
	}
	expectedIssuer := authority + "/" + tenantID + "/v2.0"
	discoveryURL := expectedIssuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oidc: discovery failed: %s", resp.Status)
	}
	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, err
	}
	if md.JWKSURI == "" {
		return nil, errors.New("oidc: discovery missing jwks_uri")
	}
	// Multi-tenant authorities publish a "{tenantid}" placeholder in the issuer.
	issuer := strings.ReplaceAll(md.Issuer, "{tenantid}", tenantID)
	if issuer != "" && strings.TrimRight(issuer, "/") != expectedIssuer {
		return nil, fmt.Errorf("oidc: issuer mismatch: %s", md.Issuer)
	}
	md.Issuer = expectedIssuer
	return &md, nil
}

// Apply copies discovered endpoints into cfg.
func (md *Metadata) Apply(cfg *Config) {
	if md == nil {
		return
	}
	cfg.Issuer = md.Issuer
	cfg.KeysURL = md.JWKSURI
}

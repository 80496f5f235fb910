package oidckit

import (
	"context"
	"testing"

	"github.com/PaulFidika/projectkit/authtest"
)

func TestDiscover(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()

	md, err := Discover(context.Background(), idp.HTTPClient(), idp.URL(), idp.TenantID())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if md.Issuer != idp.IssuerURL() {
		t.Fatalf("expected issuer %q, got %q", idp.IssuerURL(), md.Issuer)
	}
	if md.JWKSURI != idp.KeysURL() {
		t.Fatalf("expected jwks uri %q, got %q", idp.KeysURL(), md.JWKSURI)
	}

	cfg := Config{TenantID: idp.TenantID(), ClientID: idp.ClientID(), HTTPClient: idp.HTTPClient()}
	md.Apply(&cfg)
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if _, err := v.VerifyToken(context.Background(), idp.UserToken("u1", "a@b.com", "A B", nil)); err != nil {
		t.Fatalf("VerifyToken with discovered config: %v", err)
	}
}

func TestDiscover_UnknownTenant(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()

	if _, err := Discover(context.Background(), idp.HTTPClient(), idp.URL(), "other"); err == nil {
		t.Fatalf("expected error for unknown tenant")
	}
}

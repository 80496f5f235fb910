package oidckit

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/PaulFidika/projectkit/authtest"
	jwt "github.com/golang-jwt/jwt/v5"
)

func newTestVerifier(t *testing.T, idp *authtest.Issuer, mutate func(*Config)) *Verifier {
	t.Helper()
	cfg := Config{
		TenantID:   idp.TenantID(),
		ClientID:   idp.ClientID(),
		Authority:  idp.URL(),
		HTTPClient: idp.HTTPClient(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestVerifyToken_Valid(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newTestVerifier(t, idp, nil)

	claims, err := v.VerifyToken(context.Background(), idp.UserToken("u1", "a@b.com", "A B", []string{"Admin"}))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.ObjectID != "u1" || claims.UPN != "a@b.com" || claims.TenantID != "tenant-1" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
	if idp.Fetches() != 1 {
		t.Fatalf("expected one key set fetch, got %d", idp.Fetches())
	}
}

func TestVerifyToken_Idempotent(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newTestVerifier(t, idp, nil)
	token := idp.UserToken("u1", "a@b.com", "A B", []string{"Admin"})

	first, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := v.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify #%d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("identity changed between calls: %#v vs %#v", first, again)
		}
	}
	if idp.Fetches() != 1 {
		t.Fatalf("expected one key set fetch, got %d", idp.Fetches())
	}
}

func TestVerifyToken_AudienceForms(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()

	cases := []struct {
		name     string
		audience string
		tokenAud any
		wantErr  error
	}{
		{name: "client id", tokenAud: "client-1"},
		{name: "api uri", tokenAud: "api://client-1"},
		{name: "array with one match", tokenAud: []string{"other", "api://client-1"}},
		{name: "foreign", tokenAud: "client-2", wantErr: ErrInvalidAudience},
		{name: "explicit audience", audience: "https://projects.example.com", tokenAud: "https://projects.example.com"},
		{name: "explicit audience excludes client id", audience: "https://projects.example.com", tokenAud: "client-1", wantErr: ErrInvalidAudience},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVerifier(t, idp, func(c *Config) { c.Audience = tc.audience })
			token := idp.Sign(idp.Claims(map[string]any{"oid": "u1", "aud": tc.tokenAud}))
			_, err := v.VerifyToken(context.Background(), token)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestVerifyToken_Failures(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newTestVerifier(t, idp, nil)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, idp.Claims(nil))
	hs.Header["kid"] = idp.KID()
	hsToken, err := hs.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign HS256: %v", err)
	}

	noKid := jwt.NewWithClaims(jwt.SigningMethodHS256, idp.Claims(nil))
	noKidToken, err := noKid.SignedString([]byte("x"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMalformedToken},
		{"garbage", "not-a-jwt", ErrMalformedToken},
		{"missing kid", noKidToken, ErrMissingKeyID},
		{"unknown kid", idp.SignUnpublished("ghost", idp.Claims(nil)), ErrUnknownSigningKey},
		{"expired", idp.ExpiredUserToken("u1"), ErrTokenExpired},
		{"wrong issuer", idp.Sign(idp.Claims(map[string]any{"iss": "https://evil.example.com/v2.0"})), ErrInvalidIssuer},
		{"algorithm confusion", hsToken, ErrInvalidSignatureOrClaims},
		{"missing iat", idp.Sign(idp.Claims(map[string]any{"iat": nil})), ErrInvalidSignatureOrClaims},
		{"missing exp", idp.Sign(idp.Claims(map[string]any{"exp": nil})), ErrInvalidSignatureOrClaims},
		{"missing aud", idp.Sign(idp.Claims(map[string]any{"aud": nil})), ErrInvalidSignatureOrClaims},
		{"missing iss", idp.Sign(idp.Claims(map[string]any{"iss": nil})), ErrInvalidSignatureOrClaims},
		{"issued in future", idp.Sign(idp.Claims(map[string]any{"iat": time.Now().Add(time.Hour).Unix()})), ErrInvalidSignatureOrClaims},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.VerifyToken(context.Background(), tc.token)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if StatusOf(err) != http.StatusUnauthorized {
				t.Fatalf("expected 401 mapping, got %d", StatusOf(err))
			}
		})
	}
}

func TestVerifyToken_TamperedSignature(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newTestVerifier(t, idp, nil)

	token := idp.UserToken("u1", "a@b.com", "A B", nil)
	other := idp.UserToken("u2", "c@d.com", "C D", nil)
	// Header and payload of one token with the signature of another.
	tampered := token[:lastDot(token)] + other[lastDot(other):]
	if _, err := v.VerifyToken(context.Background(), tampered); !errors.Is(err, ErrInvalidSignatureOrClaims) {
		t.Fatalf("expected InvalidSignatureOrClaims, got %v", err)
	}
}

func TestVerifyToken_ForgedExpiredReportsSignature(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	v := newTestVerifier(t, idp, nil)

	expired := idp.ExpiredUserToken("u1")
	other := idp.UserToken("u2", "c@d.com", "C D", nil)
	forged := expired[:lastDot(expired)] + other[lastDot(other):]

	_, err := v.VerifyToken(context.Background(), forged)
	if !errors.Is(err, ErrInvalidSignatureOrClaims) {
		t.Fatalf("expected InvalidSignatureOrClaims, got %v", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expiry must not be reported before the signature checks out")
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func TestVerifyToken_KeyRotation(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	clock := newFakeClock()
	v := newTestVerifier(t, idp, func(c *Config) { c.Now = clock.Now })

	oldToken := idp.Sign(idp.Claims(map[string]any{"oid": "u1", "iat": clock.Now().Unix(), "nbf": nil, "exp": clock.Now().Add(time.Hour).Unix()}))
	if _, err := v.VerifyToken(context.Background(), oldToken); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}

	idp.Rotate()
	clock.Advance(2 * time.Minute)
	newToken := idp.Sign(idp.Claims(map[string]any{"oid": "u1", "iat": clock.Now().Unix(), "nbf": nil, "exp": clock.Now().Add(time.Hour).Unix()}))
	if _, err := v.VerifyToken(context.Background(), newToken); err != nil {
		t.Fatalf("expected rotated key to be picked up, got %v", err)
	}
	if idp.Fetches() != 2 {
		t.Fatalf("expected 2 key set fetches, got %d", idp.Fetches())
	}
}

func TestVerifyToken_ProviderDown(t *testing.T) {
	idp := authtest.NewIssuer("tenant-1", "client-1")
	defer idp.Close()
	idp.SetFailing(true)
	v := newTestVerifier(t, idp, nil)

	_, err := v.VerifyToken(context.Background(), idp.UserToken("u1", "a@b.com", "A B", nil))
	if !errors.Is(err, ErrKeyFetchUnavailable) {
		t.Fatalf("expected KeyFetchUnavailable, got %v", err)
	}
	if StatusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 mapping, got %d", StatusOf(err))
	}
}

func TestNewVerifier_RequiresTenantAndClient(t *testing.T) {
	if _, err := NewVerifier(Config{ClientID: "c"}); err == nil {
		t.Fatalf("expected error without tenant")
	}
	if _, err := NewVerifier(Config{TenantID: "t"}); err == nil {
		t.Fatalf("expected error without client or audience")
	}
	v, err := NewVerifier(Config{TenantID: "t", ClientID: "c"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	cfg := v.Config()
	if cfg.Issuer != "https://login.microsoftonline.com/t/v2.0" {
		t.Fatalf("unexpected issuer %q", cfg.Issuer)
	}
	if cfg.KeysURL != "https://login.microsoftonline.com/t/discovery/v2.0/keys" {
		t.Fatalf("unexpected keys url %q", cfg.KeysURL)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.CacheTTL != time.Hour {
		t.Fatalf("unexpected defaults: %v %v", cfg.FetchTimeout, cfg.CacheTTL)
	}
}

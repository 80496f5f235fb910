package oidckit

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/projectkit/observability"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Verifier validates access tokens issued for one tenant.
type Verifier struct {
	cfg       Config
	keys      *KeySetCache
	parser    *jwt.Parser
	audiences []string
	log       logrus.FieldLogger
}

// VerifierOpt configures a verifier.
type VerifierOpt func(*Verifier)

// WithKeySetCache replaces the HTTP-backed key set cache.
func WithKeySetCache(c *KeySetCache) VerifierOpt {
	return func(v *Verifier) {
		v.keys = c
	}
}

// NewVerifier builds a verifier for the configured tenant and client.
func NewVerifier(cfg Config, opts ...VerifierOpt) (*Verifier, error) {
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.TenantID) == "" {
		return nil, errors.New("oidc: tenant id is empty")
	}
	if strings.TrimSpace(cfg.ClientID) == "" && strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("oidc: client id or audience required")
	}
	v := &Verifier{
		cfg:       cfg,
		audiences: cfg.AcceptedAudiences(),
		log:       cfg.Logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.keys == nil {
		v.keys = NewKeySetCache(
			NewHTTPFetcher(cfg.HTTPClient, cfg.KeysURL),
			WithClock(cfg.Now),
			WithCacheTTL(cfg.CacheTTL),
			WithFetchTimeout(cfg.FetchTimeout),
			WithMinRefreshInterval(cfg.MinRefreshInterval),
			WithCacheLogger(cfg.Logger),
		)
	}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
	)
	return v, nil
}

// Config returns the effective configuration.
func (v *Verifier) Config() Config { return v.cfg }

// Keys exposes the key set cache.
func (v *Verifier) Keys() *KeySetCache { return v.keys }

// VerifyToken checks signature, expiry, audience and issuer and returns the
// claims. Every failure is an *Error.
func (v *Verifier) VerifyToken(ctx context.Context, rawToken string) (*Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, newError(KindMalformedToken, errors.New("empty token"))
	}

	unverified, _, err := v.parser.ParseUnverified(rawToken, &Claims{})
	if err != nil {
		return nil, newError(KindMalformedToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, newError(KindMissingKeyID, errors.New("token header has no kid"))
	}

	key, err := v.keys.SigningKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(rawToken, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !audienceAccepted(claims.Audience, v.audiences) {
		return nil, newError(KindInvalidAudience, errors.New("aud not accepted"))
	}
	return claims, nil
}

// Verify runs VerifyToken and ExtractIdentity. Failures are logged and counted
// here; the returned error still carries the cause for callers that log more.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	claims, err := v.VerifyToken(ctx, rawToken)
	if err != nil {
		v.recordFailure(err)
		return nil, err
	}
	return ExtractIdentity(claims), nil
}

func (v *Verifier) recordFailure(err error) {
	kind := KindOf(err)
	observability.AuthFailuresTotal.WithLabelValues(kind.String()).Inc()
	entry := v.log.WithField("kind", kind.String()).WithError(err)
	if kind == KindKeyFetchUnavailable {
		entry.Error("token verification unavailable")
		return
	}
	entry.Warn("token rejected")
}

// classify maps parser errors onto failure kinds. The parser joins all
// validation errors, so the most specific kind is checked first.
func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newError(KindInvalidIssuer, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newError(KindInvalidAudience, err)
	default:
		return newError(KindInvalidSignatureOrClaims, err)
	}
}

func audienceAccepted(aud jwt.ClaimStrings, accepted []string) bool {
	for _, a := range aud {
		for _, want := range accepted {
			if a != "" && a == want {
				return true
			}
		}
	}
	return false
}

package oidckit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PaulFidika/projectkit/observability"
)

// BearerToken extracts the token from an Authorization header of the exact
// form "Bearer <token>".
func BearerToken(h http.Header) (string, error) {
	values := h.Values("Authorization")
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", newError(KindMissingAuthHeader, errors.New("no authorization header"))
	}
	if len(values) > 1 {
		return "", newError(KindInvalidAuthHeaderFormat, errors.New("multiple authorization headers"))
	}
	scheme, token, ok := strings.Cut(values[0], " ")
	if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
		return "", newError(KindInvalidAuthHeaderFormat, errors.New("expected Bearer <token>"))
	}
	return token, nil
}

// VerifyRequest authenticates a request from its headers. Header problems
// are reported before any token work happens.
func (v *Verifier) VerifyRequest(ctx context.Context, h http.Header) (*Identity, error) {
	token, err := BearerToken(h)
	if err != nil {
		kind := KindOf(err)
		observability.AuthFailuresTotal.WithLabelValues(kind.String()).Inc()
		v.log.WithField("kind", kind.String()).Debug("request has no usable bearer token")
		return nil, err
	}
	return v.Verify(ctx, token)
}

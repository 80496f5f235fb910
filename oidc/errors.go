package oidckit

import (
	"errors"
	"net/http"
)

// ErrorKind classifies why a bearer token could not be turned into an identity.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMalformedToken
	KindMissingKeyID
	KindUnknownSigningKey
	KindTokenExpired
	KindInvalidAudience
	KindInvalidIssuer
	KindInvalidSignatureOrClaims
	KindKeyFetchUnavailable
	KindMissingAuthHeader
	KindInvalidAuthHeaderFormat
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                  "unknown",
	KindMalformedToken:           "malformed_token",
	KindMissingKeyID:             "missing_key_id",
	KindUnknownSigningKey:        "unknown_signing_key",
	KindTokenExpired:             "token_expired",
	KindInvalidAudience:          "invalid_audience",
	KindInvalidIssuer:            "invalid_issuer",
	KindInvalidSignatureOrClaims: "invalid_signature_or_claims",
	KindKeyFetchUnavailable:      "key_fetch_unavailable",
	KindMissingAuthHeader:        "missing_auth_header",
	KindInvalidAuthHeaderFormat:  "invalid_auth_header_format",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// HTTPStatus maps a failure kind to the response status the API layer returns.
// Only KeyFetchUnavailable is a service-side failure.
func (k ErrorKind) HTTPStatus() int {
	if k == KindKeyFetchUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

// Error is the single error type returned by the verifier. Kind is always set;
// Err carries the underlying cause for logging and is never shown to callers.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "oidc: " + e.Kind.String()
	}
	return "oidc: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// Sentinels for errors.Is.
var (
	ErrMalformedToken           = &Error{Kind: KindMalformedToken}
	ErrMissingKeyID             = &Error{Kind: KindMissingKeyID}
	ErrUnknownSigningKey        = &Error{Kind: KindUnknownSigningKey}
	ErrTokenExpired             = &Error{Kind: KindTokenExpired}
	ErrInvalidAudience          = &Error{Kind: KindInvalidAudience}
	ErrInvalidIssuer            = &Error{Kind: KindInvalidIssuer}
	ErrInvalidSignatureOrClaims = &Error{Kind: KindInvalidSignatureOrClaims}
	ErrKeyFetchUnavailable      = &Error{Kind: KindKeyFetchUnavailable}
	ErrMissingAuthHeader        = &Error{Kind: KindMissingAuthHeader}
	ErrInvalidAuthHeaderFormat  = &Error{Kind: KindInvalidAuthHeaderFormat}
)

// KindOf extracts the failure kind from err, or KindUnknown if err is not a verifier error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status for err. Non-verifier errors are treated as 401.
func StatusOf(err error) int {
	return KindOf(err).HTTPStatus()
}

package oidckit

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is every claim the service reads from an access token. Optional
// string claims are empty when absent.
type Claims struct {
	jwt.RegisteredClaims

	ObjectID          string   `json:"oid,omitempty"`
	UPN               string   `json:"upn,omitempty"`
	UniqueName        string   `json:"unique_name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Name              string   `json:"name,omitempty"`
	TenantID          string   `json:"tid,omitempty"`
	AppID             string   `json:"appid,omitempty"`
	AuthorizedParty   string   `json:"azp,omitempty"`
	AppIDACR          string   `json:"appidacr,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	Scope             string   `json:"scp,omitempty"`
	Groups            []string `json:"groups,omitempty"`
	Version           string   `json:"ver,omitempty"`
}

var (
	errMissingExp = errors.New("missing exp claim")
	errMissingIat = errors.New("missing iat claim")
	errMissingAud = errors.New("missing aud claim")
	errMissingIss = errors.New("missing iss claim")
)

// Validate requires the registered claims the provider always sets. It runs
// after signature, expiry and issuer checks as part of the same parse.
func (c *Claims) Validate() error {
	switch {
	case c.ExpiresAt == nil:
		return errMissingExp
	case c.IssuedAt == nil:
		return errMissingIat
	case len(c.Audience) == 0:
		return errMissingAud
	case c.Issuer == "":
		return errMissingIss
	}
	return nil
}

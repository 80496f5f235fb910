package oidckit

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultAuthority is the public Microsoft identity platform host.
	DefaultAuthority = "https://login.microsoftonline.com"

	DefaultFetchTimeout       = 10 * time.Second
	DefaultCacheTTL           = time.Hour
	DefaultMinRefreshInterval = time.Minute
)

// Config describes the tenant whose tokens are accepted.
type Config struct {
	TenantID string
	ClientID string
	// Audience, when set, is the only accepted aud value. Otherwise both
	// ClientID and api://ClientID are accepted.
	Audience string

	// Authority is the provider base URL; KeysURL and Issuer derive from it
	// unless set explicitly (for example from discovery).
	Authority string
	KeysURL   string
	Issuer    string

	FetchTimeout time.Duration
	CacheTTL     time.Duration
	// MinRefreshInterval bounds how often an unknown kid may force a refetch.
	MinRefreshInterval time.Duration
	Leeway             time.Duration

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	// Now overrides the clock; tests use it to move time.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	c.Authority = strings.TrimRight(strings.TrimSpace(c.Authority), "/")
	if c.Authority == "" {
		c.Authority = DefaultAuthority
	}
	if c.KeysURL == "" {
		c.KeysURL = c.Authority + "/" + c.TenantID + "/discovery/v2.0/keys"
	}
	if c.Issuer == "" {
		c.Issuer = c.Authority + "/" + c.TenantID + "/v2.0"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = DefaultMinRefreshInterval
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// AcceptedAudiences returns the aud values a token may carry.
func (c Config) AcceptedAudiences() []string {
	if aud := strings.TrimSpace(c.Audience); aud != "" {
		return []string{aud}
	}
	return []string{c.ClientID, "api://" + c.ClientID}
}

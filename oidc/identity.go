package oidckit

import "strings"

// TokenType distinguishes application tokens from interactive user tokens.
type TokenType string

const (
	TokenTypeUser              TokenType = "user"
	TokenTypeClientCredentials TokenType = "client_credentials"
)

// clientCredentialsACR is the appidacr value the provider sets for tokens
// obtained with a client secret in the client-credentials flow.
const clientCredentialsACR = "1"

// Identity is the normalized caller derived from verified claims.
type Identity struct {
	ID        string
	Email     string
	Name      string
	TenantID  string
	AppID     string
	TokenType TokenType
	Roles     []string
	Scopes    []string
	Groups    []string
	Claims    *Claims
}

// IsApplication reports whether the token represents an application rather than a person.
func (i *Identity) IsApplication() bool {
	return i != nil && i.TokenType == TokenTypeClientCredentials
}

// HasRole reports whether the roles claim contains role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ExtractIdentity normalizes verified claims.
func ExtractIdentity(c *Claims) *Identity {
	if c == nil {
		return nil
	}
	id := &Identity{
		ID:        firstNonEmpty(c.ObjectID, c.Subject),
		Name:      c.Name,
		TenantID:  c.TenantID,
		AppID:     firstNonEmpty(c.AppID, c.AuthorizedParty),
		TokenType: TokenTypeUser,
		Roles:     nonNil(c.Roles),
		Scopes:    splitScopes(c.Scope),
		Groups:    nonNil(c.Groups),
		Claims:    c,
	}
	if c.AppIDACR == clientCredentialsACR {
		id.TokenType = TokenTypeClientCredentials
	}
	id.Email = firstNonEmpty(c.UPN, c.UniqueName, c.PreferredUsername, c.Email)
	if id.Email == "" && id.TokenType == TokenTypeClientCredentials && id.AppID != "" {
		id.Email = "app-" + id.AppID + "@tenant"
	}
	return id
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitScopes(scp string) []string {
	parts := strings.Fields(scp)
	if parts == nil {
		return []string{}
	}
	return parts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package ginutil

import "github.com/gin-gonic/gin"

// UserView is a unified view of the caller for responses.
type UserView struct {
	// Identity
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	AppID     string `json:"app_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`

	// Access
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles"`
	Scopes []string `json:"scopes"`
	Groups []string `json:"groups"`

	// Meta
	Source string `json:"source"` // "token" | "none"
}

// CurrentUser returns a snapshot of the authenticated caller.
// Source is "none" when the auth middleware did not run.
func CurrentUser(c *gin.Context) (UserView, bool) {
	p, ok := Principal(c)
	if !ok || p.ID == "" {
		return UserView{Roles: []string{}, Scopes: []string{}, Groups: []string{}, Source: "none"}, false
	}
	v := UserView{
		UserID: p.ID,
		Email:  p.Email,
		Name:   p.Name,
		Role:   string(p.Role),
		Roles:  []string{},
		Scopes: []string{},
		Groups: []string{},
		Source: "token",
	}
	if id, ok := Identity(c); ok {
		v.TenantID = id.TenantID
		v.AppID = id.AppID
		v.TokenType = string(id.TokenType)
		v.Roles = id.Roles
		v.Scopes = id.Scopes
		v.Groups = id.Groups
	}
	return v, true
}

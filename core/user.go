package core

import (
	"strings"
	"time"

	oidckit "github.com/PaulFidika/projectkit/oidc"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleManager   UserRole = "manager"
	RoleDeveloper UserRole = "developer"
	RoleViewer    UserRole = "viewer"
)

// User is the local record of an authenticated caller. ID is the identity subject.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the caller as seen by the service.
type Principal struct {
	ID          string
	Email       string
	Name        string
	Role        UserRole
	Application bool
}

// Privileged reports whether the caller may act on records it does not own.
func (p Principal) Privileged() bool {
	return p.Role == RoleAdmin || p.Role == RoleManager
}

// CanSee reports whether the caller may read records owned by ownerID.
func (p Principal) CanSee(ownerID string) bool {
	return p.Privileged() || (p.ID != "" && p.ID == ownerID)
}

// RoleResolver maps directory groups and app roles onto a UserRole.
// Empty group IDs never match.
type RoleResolver struct {
	AdminGroupID     string
	ManagerGroupID   string
	DeveloperGroupID string
}

// Resolve picks the highest role granted by either a group or an app role.
func (r RoleResolver) Resolve(roles, groups []string) UserRole {
	switch {
	case inGroup(groups, r.AdminGroupID) || hasRole(roles, "Admin"):
		return RoleAdmin
	case inGroup(groups, r.ManagerGroupID) || hasRole(roles, "Manager"):
		return RoleManager
	case inGroup(groups, r.DeveloperGroupID) || hasRole(roles, "Developer"):
		return RoleDeveloper
	}
	return RoleViewer
}

// Principal builds the caller from a verified identity.
func (r RoleResolver) Principal(id *oidckit.Identity) Principal {
	if id == nil {
		return Principal{Role: RoleViewer}
	}
	return Principal{
		ID:          id.ID,
		Email:       id.Email,
		Name:        id.Name,
		Role:        r.Resolve(id.Roles, id.Groups),
		Application: id.IsApplication(),
	}
}

func inGroup(groups []string, id string) bool {
	if id == "" {
		return false
	}
	for _, g := range groups {
		if g == id {
			return true
		}
	}
	return false
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, want) {
			return true
		}
	}
	return false
}

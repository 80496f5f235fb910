package core

import "context"

// ProjectStore persists projects.
type ProjectStore interface {
	// ListProjects returns one page ordered by created_at descending, whether
	// more rows follow, and the total number of matches.
	ListProjects(ctx context.Context, f ProjectFilter, limit, offset int) ([]Project, bool, int, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	CreateProject(ctx context.Context, p Project) (*Project, error)
	// UpdateProject returns ErrNotFound when the project does not exist.
	UpdateProject(ctx context.Context, id string, u ProjectUpdate) (*Project, error)
	// DeleteProject reports whether a row was removed.
	DeleteProject(ctx context.Context, id string) (bool, error)
}

// UserStore persists users.
type UserStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, bool, int, error)
	GetUser(ctx context.Context, id string) (*User, error)
	// CreateUserIfNotExists inserts u unless a user with the same ID exists
	// and returns the stored record either way.
	CreateUserIfNotExists(ctx context.Context, u User) (*User, error)
}

// Store is the persistence adapter.
type Store interface {
	ProjectStore
	UserStore
}

// ProvisionCache remembers which callers already have a user record.
type ProvisionCache interface {
	Seen(ctx context.Context, userID string) (bool, error)
	Mark(ctx context.Context, userID string) error
}

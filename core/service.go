package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/projectkit/pagination"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service applies authorization rules on top of a Store.
type Service struct {
	store       Store
	provisioned ProvisionCache
	log         logrus.FieldLogger
	now         func() time.Time
}

type ServiceOpt func(*Service)

// WithProvisionCache short-circuits EnsureUser for callers already provisioned.
func WithProvisionCache(c ProvisionCache) ServiceOpt {
	return func(s *Service) { s.provisioned = c }
}

func WithServiceLogger(l logrus.FieldLogger) ServiceOpt {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithServiceClock(now func() time.Time) ServiceOpt {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, opts ...ServiceOpt) *Service {
	s := &Service{store: store, log: logrus.StandardLogger(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProjectEdge is one item of a project connection.
type ProjectEdge struct {
	Node   Project `json:"node"`
	Cursor string  `json:"cursor"`
}

// ProjectConnection is a page of projects.
type ProjectConnection struct {
	Edges    []ProjectEdge   `json:"edges"`
	PageInfo pagination.Info `json:"page_info"`
}

// UserEdge is one item of a user connection.
type UserEdge struct {
	Node   User   `json:"node"`
	Cursor string `json:"cursor"`
}

// UserConnection is a page of users.
type UserConnection struct {
	Edges    []UserEdge      `json:"edges"`
	PageInfo pagination.Info `json:"page_info"`
}

// ListProjects pages through projects visible to the caller. Callers without
// a privileged role only ever see their own projects.
func (s *Service) ListProjects(ctx context.Context, p Principal, f ProjectFilter, first int, after string) (*ProjectConnection, error) {
	page, err := pagination.Window(first, after)
	if err != nil {
		return nil, err
	}
	if !p.Privileged() {
		f.OwnerID = p.ID
	}
	items, hasMore, total, err := s.store.ListProjects(ctx, f, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	conn := &ProjectConnection{Edges: make([]ProjectEdge, 0, len(items))}
	for i, it := range items {
		conn.Edges = append(conn.Edges, ProjectEdge{Node: it, Cursor: page.Cursor(i)})
	}
	conn.PageInfo = pagination.NewInfo(page, len(items), hasMore, total)
	return conn, nil
}

// GetProject hides projects the caller may not see behind ErrNotFound.
func (s *Service) GetProject(ctx context.Context, p Principal, id string) (*Project, error) {
	proj, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanSee(proj.OwnerID) {
		return nil, ErrNotFound
	}
	return proj, nil
}

func (s *Service) CreateProject(ctx context.Context, p Principal, in ProjectCreate) (*Project, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		in.OwnerID = p.ID
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	if !p.CanSee(in.OwnerID) {
		return nil, fmt.Errorf("%w: cannot create projects for another owner", ErrForbidden)
	}
	now := s.now().UTC()
	proj := Project{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        in.Tags,
		OwnerID:     in.OwnerID,
		Budget:      in.Budget,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.store.CreateProject(ctx, proj)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project_id": created.ID, "owner_id": created.OwnerID, "user_id": p.ID}).Info("project created")
	return created, nil
}

func (s *Service) UpdateProject(ctx context.Context, p Principal, id string, u ProjectUpdate) (*Project, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.authorizeWrite(ctx, p, id); err != nil {
		return nil, err
	}
	return s.store.UpdateProject(ctx, id, u)
}

// DeleteProject returns ErrNotFound when nothing was removed.
func (s *Service) DeleteProject(ctx context.Context, p Principal, id string) error {
	if _, err := s.authorizeWrite(ctx, p, id); err != nil {
		return err
	}
	ok, err := s.store.DeleteProject(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.log.WithFields(logrus.Fields{"project_id": id, "user_id": p.ID}).Info("project deleted")
	return nil
}

// authorizeWrite loads the project and checks the caller owns it or is privileged.
// Projects the caller cannot see at all are reported as not found.
func (s *Service) authorizeWrite(ctx context.Context, p Principal, id string) (*Project, error) {
	proj, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanSee(proj.OwnerID) {
		return nil, ErrNotFound
	}
	return proj, nil
}

// ListUsers requires a privileged role.
func (s *Service) ListUsers(ctx context.Context, p Principal, first int, after string) (*UserConnection, error) {
	if !p.Privileged() {
		return nil, ErrForbidden
	}
	page, err := pagination.Window(first, after)
	if err != nil {
		return nil, err
	}
	items, hasMore, total, err := s.store.ListUsers(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	conn := &UserConnection{Edges: make([]UserEdge, 0, len(items))}
	for i, it := range items {
		conn.Edges = append(conn.Edges, UserEdge{Node: it, Cursor: page.Cursor(i)})
	}
	conn.PageInfo = pagination.NewInfo(page, len(items), hasMore, total)
	return conn, nil
}

// GetUser allows callers to read themselves; others need a privileged role.
func (s *Service) GetUser(ctx context.Context, p Principal, id string) (*User, error) {
	if p.ID != id && !p.Privileged() {
		return nil, ErrForbidden
	}
	return s.store.GetUser(ctx, id)
}

// Me returns the caller's user record, falling back to one built from the
// token when no record exists.
func (s *Service) Me(ctx context.Context, p Principal) (*User, error) {
	if p.Application {
		u := s.userFor(p)
		return &u, nil
	}
	u, err := s.store.GetUser(ctx, p.ID)
	if errors.Is(err, ErrNotFound) {
		fallback := s.userFor(p)
		return &fallback, nil
	}
	return u, err
}

// EnsureUser creates the caller's user record if it does not exist yet.
// Application callers are never provisioned.
func (s *Service) EnsureUser(ctx context.Context, p Principal) error {
	if p.Application || p.ID == "" {
		return nil
	}
	if s.provisioned != nil {
		seen, err := s.provisioned.Seen(ctx, p.ID)
		if err != nil {
			s.log.WithError(err).Warn("provision cache lookup failed")
		}
		if seen {
			return nil
		}
	}
	if _, err := s.store.CreateUserIfNotExists(ctx, s.userFor(p)); err != nil {
		return err
	}
	if s.provisioned != nil {
		if err := s.provisioned.Mark(ctx, p.ID); err != nil {
			s.log.WithError(err).Warn("provision cache mark failed")
		}
	}
	return nil
}

func (s *Service) userFor(p Principal) User {
	now := s.now().UTC()
	name := p.Name
	if name == "" {
		name = p.Email
	}
	return User{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  name,
		Role:      p.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Package memorystore keeps projects and users in process memory. It backs
// tests and single-node deployments without a database.
package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulFidika/projectkit/core"
)

// Store is an in-memory core.Store.
type Store struct {
	mu       sync.RWMutex
	projects map[string]core.Project
	users    map[string]core.User
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		projects: make(map[string]core.Project),
		users:    make(map[string]core.User),
		now:      time.Now,
	}
}

var _ core.Store = (*Store)(nil)

func (s *Store) ListProjects(ctx context.Context, f core.ProjectFilter, limit, offset int) ([]core.Project, bool, int, error) {
	s.mu.RLock()
	matched := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if f.Matches(p) {
			matched = append(matched, cloneProject(p))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	page, hasMore := window(len(matched), limit, offset)
	return matched[page[0]:page[1]], hasMore, len(matched), nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := cloneProject(p)
	return &out, nil
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (*core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
	out := cloneProject(p)
	return &out, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, u core.ProjectUpdate) (*core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.Apply(&p, s.now().UTC())
	s.projects[id] = p
	out := cloneProject(p)
	return &out, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]core.User, bool, int, error) {
	s.mu.RLock()
	all := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	page, hasMore := window(len(all), limit, offset)
	return all[page[0]:page[1]], hasMore, len(all), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (s *Store) CreateUserIfNotExists(ctx context.Context, u core.User) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		return &existing, nil
	}
	s.users[u.ID] = u
	return &u, nil
}

// window returns the [start, end) bounds of a page and whether more follow.
func window(n, limit, offset int) ([2]int, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit >= 0 && offset+limit < n {
		end = offset + limit
	}
	return [2]int{offset, end}, end < n
}

func cloneProject(p core.Project) core.Project {
	if p.Tags != nil {
		p.Tags = append([]string{}, p.Tags...)
	} else {
		p.Tags = []string{}
	}
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.Budget != nil {
		b := *p.Budget
		p.Budget = &b
	}
	return p
}

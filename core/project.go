package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "ACTIVE"
	StatusInactive  ProjectStatus = "INACTIVE"
	StatusCompleted ProjectStatus = "COMPLETED"
	StatusArchived  ProjectStatus = "ARCHIVED"
)

// ParseProjectStatus accepts any letter case.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch v := ProjectStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case StatusActive, StatusInactive, StatusCompleted, StatusArchived:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

func (s *ProjectStatus) UnmarshalText(b []byte) error {
	v, err := ParseProjectStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type ProjectPriority string

const (
	PriorityLow      ProjectPriority = "LOW"
	PriorityMedium   ProjectPriority = "MEDIUM"
	PriorityHigh     ProjectPriority = "HIGH"
	PriorityCritical ProjectPriority = "CRITICAL"
)

// ParseProjectPriority accepts any letter case.
func ParseProjectPriority(s string) (ProjectPriority, error) {
	switch v := ProjectPriority(strings.ToUpper(strings.TrimSpace(s))); v {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
}

func (p *ProjectPriority) UnmarshalText(b []byte) error {
	v, err := ParseProjectPriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Project is a tracked project. Records are partitioned by OwnerID.
type Project struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Status      ProjectStatus   `json:"status"`
	Priority    ProjectPriority `json:"priority"`
	Tags        []string        `json:"tags"`
	OwnerID     string          `json:"owner_id"`
	Budget      *float64        `json:"budget,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProjectCreate is the input for a new project.
type ProjectCreate struct {
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Status      ProjectStatus   `json:"status"`
	Priority    ProjectPriority `json:"priority"`
	Tags        []string        `json:"tags"`
	OwnerID     string          `json:"owner_id"`
	Budget      *float64        `json:"budget"`
}

// ProjectUpdate changes only the fields that are set.
type ProjectUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Status      *ProjectStatus   `json:"status"`
	Priority    *ProjectPriority `json:"priority"`
	Tags        *[]string        `json:"tags"`
	Budget      *float64         `json:"budget"`
}

// ProjectFilter narrows a project listing. Zero fields do not filter.
type ProjectFilter struct {
	Status   ProjectStatus
	Priority ProjectPriority
	OwnerID  string
	// Tags matches projects carrying any of the tags.
	Tags []string
	// Search is a case-insensitive substring of name or description.
	Search string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func validName(name string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(name)); n < 1 || n > 200 {
		return invalid("name must be 1-200 characters")
	}
	return nil
}

func validDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > 1000 {
		return invalid("description must be at most 1000 characters")
	}
	return nil
}

func validBudget(b *float64) error {
	if b != nil && *b < 0 {
		return invalid("budget must be non-negative")
	}
	return nil
}

// Normalize fills defaults and validates the input.
func (in *ProjectCreate) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if err := validName(in.Name); err != nil {
		return err
	}
	if err := validDescription(in.Description); err != nil {
		return err
	}
	if err := validBudget(in.Budget); err != nil {
		return err
	}
	if in.OwnerID == "" {
		return invalid("owner_id is required")
	}
	if utf8.RuneCountInString(in.ProjectID) > 100 {
		return invalid("project_id must be at most 100 characters")
	}
	if in.Status == "" {
		in.Status = StatusActive
	} else if _, err := ParseProjectStatus(string(in.Status)); err != nil {
		return err
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	} else if _, err := ParseProjectPriority(string(in.Priority)); err != nil {
		return err
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return nil
}

// Validate checks the fields that are set.
func (u *ProjectUpdate) Validate() error {
	if u.Name != nil {
		if err := validName(*u.Name); err != nil {
			return err
		}
	}
	if u.Status != nil {
		if _, err := ParseProjectStatus(string(*u.Status)); err != nil {
			return err
		}
	}
	if u.Priority != nil {
		if _, err := ParseProjectPriority(string(*u.Priority)); err != nil {
			return err
		}
	}
	if err := validDescription(u.Description); err != nil {
		return err
	}
	return validBudget(u.Budget)
}

// Apply merges the set fields into p and bumps UpdatedAt.
func (u ProjectUpdate) Apply(p *Project, now time.Time) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		d := *u.Description
		p.Description = &d
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Priority != nil {
		p.Priority = *u.Priority
	}
	if u.Tags != nil {
		p.Tags = append([]string{}, (*u.Tags)...)
	}
	if u.Budget != nil {
		b := *u.Budget
		p.Budget = &b
	}
	p.UpdatedAt = now
}

// Matches reports whether p passes the filter.
func (f ProjectFilter) Matches(p Project) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Priority != "" && p.Priority != f.Priority {
		return false
	}
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(p.Tags, f.Tags) {
		return false
	}
	if s := strings.ToLower(f.Search); s != "" {
		inName := strings.Contains(strings.ToLower(p.Name), s)
		inDesc := p.Description != nil && strings.Contains(strings.ToLower(*p.Description), s)
		if !inName && !inDesc {
			return false
		}
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

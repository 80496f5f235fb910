// Package pgstore is the PostgreSQL persistence adapter for projects and users.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/projectkit/core"
	migrations "github.com/PaulFidika/projectkit/migrations/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const projectColumns = `id::text, project_id, name, description, status, priority, tags, owner_id, budget, created_at, updated_at`

const userColumns = `id, email, full_name, role, is_active, created_at, updated_at`

// Store is a PostgreSQL-backed core.Store.
type Store struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
	now  func() time.Time
}

var _ core.Store = (*Store)(nil)

// Open connects to the database and optionally applies migrations.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Store, error) {
	cfg.defaults()
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s := New(pool, log)
	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{pool: pool, log: log, now: time.Now}
}

// Migrate applies pending migrations under the bun migration lock.
func (s *Store) Migrate(ctx context.Context) error {
	sqldb := stdlib.OpenDBFromPool(s.pool)
	defer sqldb.Close()
	db := bun.NewDB(sqldb, pgdialect.New())

	m := migrations.NewMigrator(db)
	if err := m.Init(ctx); err != nil {
		return err
	}
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = m.Unlock(ctx) }()

	group, err := m.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		s.log.Debug("database schema up to date")
		return nil
	}
	s.log.WithFields(logrus.Fields{"group": group.String(), "known": len(migrations.Names())}).Info("database migrated")
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

func (s *Store) ListProjects(ctx context.Context, f core.ProjectFilter, limit, offset int) ([]core.Project, bool, int, error) {
	offset = max(offset, 0)
	var a args
	where := whereClause(f, &a)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM projects`+where, a...).Scan(&total); err != nil {
		return nil, false, 0, fmt.Errorf("counting projects: %w", err)
	}

	q := `SELECT ` + projectColumns + ` FROM projects` + where +
		` ORDER BY created_at DESC, id ASC LIMIT ` + a.add(limit+1) + ` OFFSET ` + a.add(offset)
	rows, err := s.pool.Query(ctx, q, a...)
	if err != nil {
		return nil, false, 0, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	items := make([]core.Project, 0, limit+1)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, false, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, 0, err
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, total, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*core.Project, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, uid))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (*core.Project, error) {
	uid, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: project id must be a uuid", core.ErrInvalidInput)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	var projectID *string
	if p.ProjectID != "" {
		projectID = &p.ProjectID
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO projects (id, project_id, name, description, status, priority, tags, owner_id, budget, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uid, projectID, p.Name, p.Description, string(p.Status), string(p.Priority), p.Tags, p.OwnerID, p.Budget, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	return &p, nil
}

// UpdateProject locks the row, merges the update and writes it back in one transaction.
func (s *Store) UpdateProject(ctx context.Context, id string, u core.ProjectUpdate) (*core.Project, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	var out core.Project
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := scanProject(tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, uid))
		if err != nil {
			return err
		}
		u.Apply(&p, s.now().UTC())
		_, err = tx.Exec(ctx, `UPDATE projects SET name = $2, description = $3, status = $4, priority = $5, tags = $6, budget = $7, updated_at = $8 WHERE id = $1`,
			uid, p.Name, p.Description, string(p.Status), string(p.Priority), p.Tags, p.Budget, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, uid)
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]core.User, bool, int, error) {
	offset = max(offset, 0)
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, false, 0, fmt.Errorf("counting users: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2`, limit+1, offset)
	if err != nil {
		return nil, false, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()
	items := make([]core.User, 0, limit+1)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, false, 0, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, false, 0, err
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, total, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUserIfNotExists(ctx context.Context, u core.User) (*core.User, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id, email, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.FullName, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func scanProject(row pgx.Row) (core.Project, error) {
	var (
		p         core.Project
		projectID *string
		status    string
		priority  string
	)
	err := row.Scan(&p.ID, &projectID, &p.Name, &p.Description, &status, &priority, &p.Tags, &p.OwnerID, &p.Budget, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Project{}, core.ErrNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("scanning project: %w", err)
	}
	if projectID != nil {
		p.ProjectID = *projectID
	}
	p.Status = core.ProjectStatus(status)
	p.Priority = core.ProjectPriority(priority)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func scanUser(row pgx.Row) (core.User, error) {
	var (
		u    core.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = core.UserRole(role)
	return u, nil
}

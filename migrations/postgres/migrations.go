package migrations

import (
	"embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Bookkeeping tables, kept apart from bun's defaults so the service can
// share a database with other bun users.
const (
	TableName      = "projectkit_migrations"
	LocksTableName = "projectkit_migration_locks"
)

//go:embed *.sql
var migrationFS embed.FS

// Migrations is the bun/migrate registry for the projects and users schema.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(migrationFS); err != nil {
		panic(err)
	}
}

// NewMigrator binds the registry to db.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations,
		migrate.WithTableName(TableName),
		migrate.WithLocksTableName(LocksTableName),
	)
}

// Names lists the known migrations in apply order.
func Names() []string {
	sorted := Migrations.Sorted()
	out := make([]string, 0, len(sorted))
	for _, m := range sorted {
		out = append(out, m.Name)
	}
	return out
}

package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/records"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the local stores the client works with.
type Repositories struct {
	Metadata  metadata.Repository
	Tasks     *records.SQLiteRepository[models.Task]
	Shortcuts *records.SQLiteRepository[models.Shortcut]
	Todos     *records.SQLiteRepository[models.Todo]
}

// NewRepositories builds all repositories over one database handle.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Tasks:     records.NewSQLiteRepository[models.Task](db, models.KindTask),
		Shortcuts: records.NewSQLiteRepository[models.Shortcut](db, models.KindShortcut),
		Todos:     records.NewSQLiteRepository[models.Todo](db, models.KindTodo),
	}
}

// RunMigrations applies the embedded goose migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the SQLite database at dsn and migrates it.
// The store is single-writer, so the pool is limited to one connection.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}
	return db, nil
}

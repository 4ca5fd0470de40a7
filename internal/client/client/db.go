package client

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/migrations"
)

// Repositories bundles the repositories backed by the local database.
type Repositories struct {
	Metadata metadata.Repository
	Sessions *sessions.SQLiteRepository
}

// NewRepositories wires the local repositories on top of an open database.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		Sessions: sessions.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded SQLite migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return dbx.Migrate(ctx, db, "sqlite3", migrations.SQLite, "sqlite")
}

// InitDatabase opens the local SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

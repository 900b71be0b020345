// Package localdb opens the on-device database and hands back the storage
// substrate the rest of the client is built on.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cardsync/internal/client/config"
	"github.com/dmitrijs2005/cardsync/internal/client/migrations"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite file at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; one connection keeps :memory:
	// databases coherent as well.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenRepository builds the substrate selected by cfg.StorageDriver. The
// returned closer releases the underlying file handle.
func OpenRepository(ctx context.Context, cfg *config.Config) (kv.Repository, io.Closer, error) {
	if err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, nil, err
	}
	switch cfg.StorageDriver {
	case "", config.DriverSQLite:
		db, err := InitDatabase(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		return kv.NewSQLiteRepository(db), db, nil
	case config.DriverBolt:
		repo, err := kv.OpenBolt(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

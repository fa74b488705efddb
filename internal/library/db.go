package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"photonix/photo-portal/internal/config"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS libraries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		storage_backend TEXT NOT NULL,
		base_path TEXT NOT NULL DEFAULT '',
		s3_server TEXT NOT NULL DEFAULT '',
		s3_bucket TEXT NOT NULL DEFAULT '',
		s3_path TEXT NOT NULL DEFAULT '',
		s3_access_key TEXT NOT NULL DEFAULT '',
		s3_secret_key TEXT NOT NULL DEFAULT '',
		s3_use_ssl BOOLEAN NOT NULL DEFAULT FALSE,
		classify_color BOOLEAN NOT NULL DEFAULT TRUE,
		classify_location BOOLEAN NOT NULL DEFAULT TRUE,
		classify_object BOOLEAN NOT NULL DEFAULT TRUE,
		classify_style BOOLEAN NOT NULL DEFAULT TRUE,
		classify_face BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS library_users (
		library_id TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		owner BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (library_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS library_paths (
		id TEXT PRIMARY KEY,
		library_id TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		path TEXT NOT NULL,
		watch_for_changes BOOLEAN NOT NULL DEFAULT FALSE,
		delete_after_import BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		library_id TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		storage_key TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		taken_at TIMESTAMP NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		camera_make TEXT NOT NULL DEFAULT '',
		camera_model TEXT NOT NULL DEFAULT '',
		imported_at TIMESTAMP NOT NULL,
		UNIQUE (library_id, storage_key)
	)`,
	`CREATE INDEX IF NOT EXISTS photos_taken_at ON photos (library_id, taken_at)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		library_id TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		ordering INTEGER NOT NULL DEFAULT 0,
		UNIQUE (library_id, name, type)
	)`,
	`CREATE TABLE IF NOT EXISTS photo_tags (
		photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (photo_id, tag_id)
	)`,
}

// Open connects to the configured database and creates missing tables
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.GetDatabaseURL()
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sqlitePath(dsn)), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = sqlx.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// a single connection keeps writes serialised and :memory: databases shared
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sqlx.Open("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN adds the connection pragmas to dsn, keeping any query it has
func sqliteDSN(dsn string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}

// sqlitePath strips the file: scheme and query from dsn
func sqlitePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/wisdom/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx used by the query functions.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/wisdom.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.wisdom.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Downloaded documents land here by default
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "wisdom.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: drops and attribution documents
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS wisdom_drops (
		  id           INTEGER PRIMARY KEY AUTOINCREMENT,
		  title        TEXT NOT NULL,
		  content      TEXT NOT NULL,
		  author_email TEXT NOT NULL,
		  author_id    TEXT NOT NULL DEFAULT '',
		  category     TEXT NOT NULL DEFAULT '',
		  tags_json    TEXT,
		  layers_json  TEXT,
		  views        INTEGER NOT NULL DEFAULT 0,
		  downloads    INTEGER NOT NULL DEFAULT 0,
		  created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_wisdom_drops_category_created
		ON wisdom_drops(category, created_at DESC);

		CREATE TABLE IF NOT EXISTS attribution_documents (
		  id             TEXT PRIMARY KEY,
		  wisdom_id      INTEGER NOT NULL REFERENCES wisdom_drops(id),
		  document_hash  TEXT NOT NULL,
		  content        TEXT NOT NULL,
		  created_at     INTEGER NOT NULL,
		  download_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_attribution_documents_hash
		ON attribution_documents(document_hash);

		CREATE INDEX IF NOT EXISTS idx_attribution_documents_wisdom_created
		ON attribution_documents(wisdom_id, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: documents are append-only
	if version < 2 {
		schema := `
		CREATE TRIGGER IF NOT EXISTS trg_attribution_documents_immutable
		BEFORE UPDATE OF id, wisdom_id, document_hash, content, created_at ON attribution_documents
		BEGIN
		  SELECT RAISE(ABORT, 'attribution documents are immutable');
		END;

		CREATE TRIGGER IF NOT EXISTS trg_attribution_documents_no_delete
		BEFORE DELETE ON attribution_documents
		BEGIN
		  SELECT RAISE(ABORT, 'attribution documents cannot be deleted');
		END;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

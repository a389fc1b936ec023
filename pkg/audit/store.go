package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"guardline-hq/bastion/pkg/config"
)

// Store is the SQLite-backed audit store.
type Store struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	logger     *slog.Logger
}

// NewStore opens (or creates) the audit database at the configured path,
// enables WAL mode when configured, and prepares the schema.
func NewStore(cfg config.SQLiteConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit database path cannot be empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, storageErr("open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "audit.store"),
	}

	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit store initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *Store) initialize(cfg config.SQLiteConfig) error {
	if cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return storageErr("enable_wal", err)
		}
	}
	if cfg.BusyTimeout > 0 {
		stmt := fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(stmt); err != nil {
			return storageErr("set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return storageErr("insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return storageErr("get_schema_version", err)
	}
	if version != SchemaVersion {
		return storageErr("schema_version_mismatch",
			fmt.Errorf("expected version %d, got %d", SchemaVersion, version))
	}

	insert, err := s.db.Prepare(`
		INSERT INTO scans (
			scan_id, ruleset, input_hash, input_length,
			blocked, rule_count, outcomes, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("prepare_insert", err)
	}
	s.insertStmt = insert

	return nil
}

// Record persists one scan entry.
func (s *Store) Record(ctx context.Context, entry *Entry) error {
	outcomes, err := json.Marshal(entry.Outcomes)
	if err != nil {
		return storageErr("marshal_outcomes", err)
	}

	_, err = s.insertStmt.ExecContext(ctx,
		entry.ScanID,
		entry.RulesetName,
		entry.InputHash,
		entry.InputLength,
		entry.Blocked,
		len(entry.Outcomes),
		string(outcomes),
		entry.Duration.Milliseconds(),
		entry.CreatedAt,
	)
	if err != nil {
		return storageErr("insert", err)
	}
	return nil
}

// RecordAsync persists the entry in the background. Failures are logged and
// otherwise dropped; auditing must never slow down or fail a scan.
func (s *Store) RecordAsync(entry *Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.Record(ctx, entry); err != nil {
			s.logger.Error("failed to record scan audit entry",
				"scan_id", entry.ScanID,
				"error", err,
			)
		}
	}()
}

// GetByScanID returns the entry for one scan, or sql.ErrNoRows wrapped in a
// StorageError when absent.
func (s *Store) GetByScanID(ctx context.Context, scanID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scan_id, ruleset, input_hash, input_length,
		       blocked, outcomes, duration_ms, created_at
		FROM scans WHERE scan_id = ?
	`, scanID)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, storageErr("get", err)
	}
	return entry, nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, ruleset, input_hash, input_length,
		       blocked, outcomes, duration_ms, created_at
		FROM scans ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("query", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan_row", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate", err)
	}
	return entries, nil
}

// Count returns the total number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&count); err != nil {
		return 0, storageErr("count", err)
	}
	return count, nil
}

// DeleteBefore removes entries created before the cutoff and returns how
// many were deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, storageErr("delete_before", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("rows_affected", err)
	}
	return deleted, nil
}

// TrimTo deletes the oldest entries so at most keep remain.
func (s *Store) TrimTo(ctx context.Context, keep int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scans WHERE scan_id IN (
			SELECT scan_id FROM scans
			ORDER BY created_at DESC
			LIMIT -1 OFFSET ?
		)
	`, keep)
	if err != nil {
		return 0, storageErr("trim", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("rows_affected", err)
	}
	return deleted, nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			s.logger.Error("failed to close prepared statement", "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		return storageErr("close", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry      Entry
		outcomes   string
		durationMS int64
	)
	err := row.Scan(
		&entry.ScanID,
		&entry.RulesetName,
		&entry.InputHash,
		&entry.InputLength,
		&entry.Blocked,
		&outcomes,
		&durationMS,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(outcomes), &entry.Outcomes); err != nil {
		return nil, fmt.Errorf("corrupt outcomes JSON: %w", err)
	}
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	return &entry, nil
}

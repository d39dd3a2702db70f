package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/miradorstack/realitycheck/internal/models"
	"github.com/miradorstack/realitycheck/internal/repo/migrations"
)

// SQLiteStore persists snapshots in a local SQLite database. Each row holds
// one version as a JSON document keyed by (startup_id, version).
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// One connection serialises writers inside the process; busy_timeout
	// covers other processes sharing the file.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if err := migrations.Apply(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Latest returns the highest version stored for startupID, or nil.
func (s *SQLiteStore) Latest(ctx context.Context, startupID string) (*models.StartupSnapshot, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var document string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT document FROM snapshots WHERE startup_id = ? ORDER BY version DESC LIMIT 1`,
		startupID,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	snapshot, err := decodeSnapshot(document)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Append inserts snapshot if its version is exactly one past the stored
// maximum. Gaps, duplicates and lost races all surface as
// models.ErrVersionConflict.
func (s *SQLiteStore) Append(ctx context.Context, snapshot models.StartupSnapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := checkAppendable(snapshot); err != nil {
		return err
	}
	document, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	// The version check and the insert are one statement so the write lock
	// covers both.
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO snapshots (startup_id, version, created_at, document)
SELECT ?, ?, ?, ?
WHERE (SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE startup_id = ?) = ?`,
		snapshot.StartupID, snapshot.Version, toMillis(snapshot.Timestamp), string(document),
		snapshot.StartupID, snapshot.Version-1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append version %d: %w", snapshot.Version, models.ErrVersionConflict)
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("append version %d is not next: %w", snapshot.Version, models.ErrVersionConflict)
	}
	return nil
}

// List returns every version of startupID in ascending order.
func (s *SQLiteStore) List(ctx context.Context, startupID string) ([]models.StartupSnapshot, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT document FROM snapshots WHERE startup_id = ? ORDER BY version ASC`,
		startupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.StartupSnapshot, 0)
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshot, err := decodeSnapshot(document)
		if err != nil {
			return nil, err
		}
		out = append(out, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func decodeSnapshot(document string) (models.StartupSnapshot, error) {
	var snapshot models.StartupSnapshot
	if err := json.Unmarshal([]byte(document), &snapshot); err != nil {
		return models.StartupSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snapshot.Timestamp = snapshot.Timestamp.UTC()
	if snapshot.TopRisks == nil {
		snapshot.TopRisks = []string{}
	}
	if snapshot.DeclaredNextSteps == nil {
		snapshot.DeclaredNextSteps = []string{}
	}
	return snapshot, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

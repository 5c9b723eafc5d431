package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore keeps translation run history in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// RecordRun inserts or updates a run history row.
func (s *SQLiteStore) RecordRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
			id, source_path, output_path, source_lang, target_lang, status, error,
			total_lines, total_batches, resumed_batches, duration_ms, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_path=excluded.source_path,
			output_path=excluded.output_path,
			source_lang=excluded.source_lang,
			target_lang=excluded.target_lang,
			status=excluded.status,
			error=excluded.error,
			total_lines=excluded.total_lines,
			total_batches=excluded.total_batches,
			resumed_batches=excluded.resumed_batches,
			duration_ms=excluded.duration_ms,
			updated_at=excluded.updated_at`,
		run.ID,
		run.SourcePath,
		run.OutputPath,
		run.SourceLang,
		run.TargetLang,
		string(run.Status),
		run.Error,
		run.TotalLines,
		run.TotalBatches,
		run.ResumedBatches,
		run.Duration.Milliseconds(),
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

// History returns the most recent runs, newest first. A limit of 0 or
// less means no limit.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, source_path, output_path, source_lang, target_lang, status, error,
			total_lines, total_batches, resumed_batches, duration_ms, created_at, updated_at
		 FROM runs
		 ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]RunRecord, 0)
	for rows.Next() {
		var item RunRecord
		var status string
		var durationMS int64
		if err := rows.Scan(
			&item.ID,
			&item.SourcePath,
			&item.OutputPath,
			&item.SourceLang,
			&item.TargetLang,
			&status,
			&item.Error,
			&item.TotalLines,
			&item.TotalBatches,
			&item.ResumedBatches,
			&durationMS,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = RunStatus(status)
		item.Duration = time.Duration(durationMS) * time.Millisecond
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// HasCompleted reports whether a completed run for this input and
// target language was recorded before.
func (s *SQLiteStore) HasCompleted(ctx context.Context, sourcePath, targetLang string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM runs WHERE source_path = ? AND target_lang = ? AND status = ?`,
		sourcePath,
		targetLang,
		string(RunCompleted),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteHistory removes all run history rows.
func (s *SQLiteStore) DeleteHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

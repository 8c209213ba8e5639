package jobs

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists jobs so status survives restarts
type SQLiteStore struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath, applies
// migrations and fails any job a previous process left processing.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{
		conn:   conn,
		logger: logger.With().Str("component", "jobstore").Logger(),
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if n, err := s.markInterruptedJobs(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to mark interrupted jobs")
	} else if n > 0 {
		s.logger.Info().Int64("jobs", n).Msg("marked interrupted jobs as failed")
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}

		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		s.logger.Info().Str("name", name).Msg("applied migration")
	}

	return nil
}

func (s *SQLiteStore) isMigrationApplied(name string) bool {
	var exists int
	err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}

	var applied int
	err = s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *SQLiteStore) markInterruptedJobs() (int64, error) {
	res, err := s.conn.ExecContext(context.Background(),
		`UPDATE jobs SET status = ?, error = 'interrupted by restart', current_stage = 'Failed: interrupted', updated_at = ?
		 WHERE status = ?`,
		StatusFailed, formatTime(time.Now()), StatusProcessing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const jobColumns = `id, status, progress, current_stage, error, file_path, download_url,
	source_url, format, target_duration, captions, output_dir, created_at, updated_at`

func (s *SQLiteStore) Put(ctx context.Context, job Job) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			current_stage = excluded.current_stage,
			error = excluded.error,
			file_path = excluded.file_path,
			download_url = excluded.download_url,
			updated_at = excluded.updated_at`,
		job.ID, job.Status, job.Progress, job.Stage, job.Error, job.FilePath, job.DownloadURL,
		job.URL, job.Format, job.TargetDuration, job.Captions, job.OutputDir,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

// List returns all jobs, newest first
func (s *SQLiteStore) List(ctx context.Context) ([]Job, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job              Job
		status           string
		created, updated string
	)
	err := row.Scan(&job.ID, &status, &job.Progress, &job.Stage, &job.Error, &job.FilePath, &job.DownloadURL,
		&job.URL, &job.Format, &job.TargetDuration, &job.Captions, &job.OutputDir, &created, &updated)
	if err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.CreatedAt = parseTime(created)
	job.UpdatedAt = parseTime(updated)
	return job, nil
}

// timeLayout is fixed width so text order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

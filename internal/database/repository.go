package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
)

// Connection wraps the database connection
type Connection struct {
	db     *sql.DB
	logger *slog.Logger
}

// Repository provides database operations for import-run bookkeeping.
// Only run records are persisted; the identity store itself is rebuilt
// from scratch on every run.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// ImportRun represents one analysis run over a set of uploaded files.
type ImportRun struct {
	ID          string                 `json:"id"`
	CaseID      int                    `json:"case_id"`
	Status      string                 `json:"status"`
	Summary     map[string]interface{} `json:"summary,omitempty"`
	Result      json.RawMessage        `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
}

// ImportFile represents one source file within a run.
type ImportFile struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	FileName    string    `json:"file_name"`
	SourceType  string    `json:"source_type"`
	Status      string    `json:"status"`
	RecordCount int       `json:"record_count"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig, logger *slog.Logger) (*Connection, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")

	return &Connection{db: db, logger: logger}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}

// RunMigrations applies pending schema migrations.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// NewRepository creates a repository over an open connection.
func NewRepository(conn *Connection, logger *slog.Logger) *Repository {
	return &Repository{db: conn.db, logger: logger}
}

// CreateImportRun inserts a new run record.
func (r *Repository) CreateImportRun(ctx context.Context, run *ImportRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO import_runs (id, case_id, status, summary, result, error, started_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.CaseID, run.Status, summary, run.Result, run.Error, run.StartedAt, run.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}
	return nil
}

// UpdateImportRun updates a run's status, summary, result, and completion time.
func (r *Repository) UpdateImportRun(ctx context.Context, run *ImportRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE import_runs
		SET status = $2, summary = $3, result = $4, error = $5, completed_at = $6
		WHERE id = $1`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Status, summary, run.Result, run.Error, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}
	return nil
}

// GetImportRun retrieves one run by id.
func (r *Repository) GetImportRun(ctx context.Context, id string) (*ImportRun, error) {
	query := `
		SELECT id, case_id, status, summary, result, error, started_at, completed_at, created_by
		FROM import_runs WHERE id = $1`

	run := &ImportRun{}
	var summary []byte
	var result sql.NullString
	var errMsg sql.NullString
	var completedAt sql.NullTime
	var createdBy sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.CaseID, &run.Status, &summary, &result, &errMsg,
		&run.StartedAt, &completedAt, &createdBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}
	if result.Valid {
		run.Result = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if createdBy.Valid {
		run.CreatedBy = createdBy.String
	}

	return run, nil
}

// ListImportRuns lists runs for a case, newest first.
func (r *Repository) ListImportRuns(ctx context.Context, caseID, limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, case_id, status, summary, error, started_at, completed_at, created_by
		FROM import_runs
		WHERE case_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		run := &ImportRun{}
		var summary []byte
		var errMsg sql.NullString
		var completedAt sql.NullTime
		var createdBy sql.NullString

		if err := rows.Scan(&run.ID, &run.CaseID, &run.Status, &summary, &errMsg,
			&run.StartedAt, &completedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}

		if len(summary) > 0 {
			if err := json.Unmarshal(summary, &run.Summary); err != nil {
				return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
			}
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if createdBy.Valid {
			run.CreatedBy = createdBy.String
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CreateImportFile inserts a per-file record for a run.
func (r *Repository) CreateImportFile(ctx context.Context, file *ImportFile) error {
	query := `
		INSERT INTO import_files (id, run_id, file_name, source_type, status, record_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.RunID, file.FileName, file.SourceType, file.Status,
		file.RecordCount, file.Error, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert import file: %w", err)
	}
	return nil
}

// ListImportFiles lists the file records of a run.
func (r *Repository) ListImportFiles(ctx context.Context, runID string) ([]*ImportFile, error) {
	query := `
		SELECT id, run_id, file_name, source_type, status, record_count, error, created_at
		FROM import_files
		WHERE run_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import files: %w", err)
	}
	defer rows.Close()

	var files []*ImportFile
	for rows.Next() {
		file := &ImportFile{}
		var errMsg sql.NullString

		if err := rows.Scan(&file.ID, &file.RunID, &file.FileName, &file.SourceType,
			&file.Status, &file.RecordCount, &errMsg, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import file: %w", err)
		}
		if errMsg.Valid {
			file.Error = errMsg.String
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

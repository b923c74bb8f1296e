package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/macwinusb/winusb/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for runs
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(dbPath string) (*Repository, error) {
	slog.Debug("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Debug("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

const runColumns = `id, run_key, source_image, sha256, device, mount_point, status,
       payload_action, payload_size, error_message, created_at, updated_at`

// Create inserts a new run record
func (r *Repository) Create(run *Run) error {
	slog.Debug("database_create_run", "run_key", run.RunKey, "status", run.Status)

	query := `
		INSERT INTO runs (run_key, source_image, sha256, device, mount_point, status, payload_action, payload_size, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		run.RunKey, run.SourceImage, run.SHA256, run.Device, run.MountPoint,
		run.Status, run.PayloadAction, run.PayloadSize, run.ErrorMessage)
	if err != nil {
		slog.Error("database_insert_failed", "run_key", run.RunKey, "error", err)
		return errors.Wrap(err, "failed to insert run")
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("database_last_insert_id_failed", "run_key", run.RunKey, "error", err)
		return errors.Wrap(err, "failed to get last insert id")
	}
	run.ID = id

	slog.Debug("database_run_created", "run_key", run.RunKey, "run_id", run.ID)
	return nil
}

// GetByRunKey retrieves a run by its key. It returns nil, nil when absent.
func (r *Repository) GetByRunKey(runKey string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_key = ?`

	run, err := scanRun(r.db.QueryRow(query, runKey))
	if err == sql.ErrNoRows {
		slog.Debug("database_run_not_found", "run_key", runKey)
		return nil, nil
	}
	if err != nil {
		slog.Error("database_query_failed", "run_key", runKey, "error", err)
		return nil, errors.Wrap(err, "failed to query run")
	}
	return run, nil
}

// Update updates an existing run record
func (r *Repository) Update(run *Run) error {
	slog.Debug("database_update_run", "run_id", run.ID, "status", run.Status)

	query := `
		UPDATE runs
		SET sha256 = ?, mount_point = ?, status = ?, payload_action = ?, payload_size = ?,
		    error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		run.SHA256, run.MountPoint, run.Status, run.PayloadAction, run.PayloadSize,
		run.ErrorMessage, run.ID)
	if err != nil {
		slog.Error("database_update_failed", "run_id", run.ID, "error", err)
		return errors.Wrap(err, "failed to update run")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		slog.Error("database_run_not_found_for_update", "run_id", run.ID)
		return fmt.Errorf("run not found: id=%d", run.ID)
	}
	return nil
}

// UpdateStatus updates only the status and error message
func (r *Repository) UpdateStatus(id int64, status, errorMessage string) error {
	slog.Debug("database_update_status", "run_id", id, "status", status)

	query := `UPDATE runs SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.Exec(query, status, errorMessage, id); err != nil {
		slog.Error("database_status_update_failed", "run_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update status")
	}
	return nil
}

// List retrieves all runs, newest first
func (r *Repository) List() ([]*Run, error) {
	return r.query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`)
}

// ListHoldingMounts retrieves runs that may still have an image attached
func (r *Repository) ListHoldingMounts() ([]*Run, error) {
	return r.query(`SELECT `+runColumns+` FROM runs WHERE mount_point != '' AND status != ? ORDER BY id`, StatusCleaned)
}

// Delete deletes a run by ID
func (r *Repository) Delete(id int64) error {
	slog.Debug("database_delete_run", "run_id", id)

	if _, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		slog.Error("database_delete_failed", "run_id", id, "error", err)
		return errors.Wrap(err, "failed to delete run")
	}
	return nil
}

func (r *Repository) query(query string, args ...any) ([]*Run, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			slog.Error("database_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var errorMessage sql.NullString

	err := row.Scan(
		&run.ID, &run.RunKey, &run.SourceImage, &run.SHA256, &run.Device,
		&run.MountPoint, &run.Status, &run.PayloadAction, &run.PayloadSize,
		&errorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	run.ErrorMessage = errorMessage.String
	return &run, nil
}

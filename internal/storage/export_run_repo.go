package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_export_run_store.go -package=mocks smartfarm-dataset/internal/storage ExportRunStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrRunFinished is returned when completing or failing a run that is no longer running.
	ErrRunFinished = errors.New("export run already finished")
)

// ExportRunStore defines the interface for the export run ledger.
type ExportRunStore interface {
	// Create records run as running. An empty run.ID gets a new UUID;
	// Status and StartedAt are set by the store.
	Create(ctx context.Context, run *ExportRun) error
	// Complete marks a running export as completed with its counters.
	Complete(ctx context.Context, id string, stats RunStats) error
	// Fail marks a running export as failed with a reason.
	Fail(ctx context.Context, id string, reason string) error
	// Get returns a run by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*ExportRun, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]ExportRun, error)
	// LatestCompleted returns the most recent completed run, or ErrNotFound.
	LatestCompleted(ctx context.Context) (*ExportRun, error)
	// FailRunning marks every run still running as failed and returns how many
	// were affected. It is used at startup to close runs a crash left open.
	FailRunning(ctx context.Context, reason string) (int, error)
}

// ExportRunRepo provides methods for export run operations.
// It implements the ExportRunStore interface.
type ExportRunRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewExportRunRepo creates a new ExportRunRepo.
func NewExportRunRepo(db *sql.DB) *ExportRunRepo {
	return &ExportRunRepo{db: db, now: time.Now}
}

const exportRunColumns = `id, output_dir, status, started_at, finished_at, samples, images_copied,
	images_missing, images_failed, bytes_written, columns, sensors, error`

// Create records a new running export.
// If run.ID is empty, a new UUID is generated.
func (r *ExportRunRepo) Create(ctx context.Context, run *ExportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.Status = RunRunning
	run.StartedAt = r.now().UTC()
	run.FinishedAt = nil

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO export_runs (id, output_dir, status, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.OutputDir, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}
	return nil
}

// Complete marks a running export as completed.
func (r *ExportRunRepo) Complete(ctx context.Context, id string, stats RunStats) error {
	if stats.Columns == nil {
		stats.Columns = []string{}
	}
	if stats.Sensors == nil {
		stats.Sensors = []SensorRange{}
	}
	columns, err := encodeJSON(stats.Columns)
	if err != nil {
		return err
	}
	sensors, err := encodeJSON(stats.Sensors)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE export_runs SET status = ?, finished_at = ?, samples = ?, images_copied = ?,
		 images_missing = ?, images_failed = ?, bytes_written = ?, columns = ?, sensors = ?
		 WHERE id = ? AND status = ?`,
		string(RunCompleted), formatTime(r.now().UTC()), stats.Samples, stats.ImagesCopied,
		stats.ImagesMissing, stats.ImagesFailed, stats.BytesWritten, columns, sensors,
		id, string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to complete export run: %w", err)
	}
	return r.checkFinished(ctx, id, res)
}

// Fail marks a running export as failed.
func (r *ExportRunRepo) Fail(ctx context.Context, id string, reason string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE export_runs SET status = ?, finished_at = ?, error = ? WHERE id = ? AND status = ?",
		string(RunFailed), formatTime(r.now().UTC()), reason, id, string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to fail export run: %w", err)
	}
	return r.checkFinished(ctx, id, res)
}

// checkFinished turns a zero-row update into ErrNotFound or ErrRunFinished.
func (r *ExportRunRepo) checkFinished(ctx context.Context, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrRunFinished
}

// Get returns a run by ID.
func (r *ExportRunRepo) Get(ctx context.Context, id string) (*ExportRun, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+exportRunColumns+" FROM export_runs WHERE id = ?", id)
	run, err := scanExportRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs ordered by start time, newest first.
// A non-positive limit returns every run.
func (r *ExportRunRepo) List(ctx context.Context, limit int) ([]ExportRun, error) {
	query := "SELECT " + exportRunColumns + " FROM export_runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	runs := []ExportRun{}
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate export runs: %w", err)
	}
	return runs, nil
}

// LatestCompleted returns the most recently started completed run.
func (r *ExportRunRepo) LatestCompleted(ctx context.Context) (*ExportRun, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+exportRunColumns+" FROM export_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1",
		string(RunCompleted),
	)
	run, err := scanExportRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest export run: %w", err)
	}
	return run, nil
}

// FailRunning closes every run still marked running.
func (r *ExportRunRepo) FailRunning(ctx context.Context, reason string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE export_runs SET status = ?, finished_at = ?, error = ? WHERE status = ?",
		string(RunFailed), formatTime(r.now().UTC()), reason, string(RunRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close running exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExportRun(s rowScanner) (*ExportRun, error) {
	var (
		run              ExportRun
		status           string
		startedAt        string
		finishedAt       sql.NullString
		columns, sensors string
	)
	err := s.Scan(&run.ID, &run.OutputDir, &status, &startedAt, &finishedAt,
		&run.Samples, &run.ImagesCopied, &run.ImagesMissing, &run.ImagesFailed, &run.BytesWritten,
		&columns, &sensors, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at timestamp: %w", err)
		}
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(columns), &run.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns: %w", err)
	}
	if err := json.Unmarshal([]byte(sensors), &run.Sensors); err != nil {
		return nil, fmt.Errorf("failed to decode sensors: %w", err)
	}
	return &run, nil
}

// Times are stored as fixed-width UTC text so lexical order is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Try alternative format (rows written by the SQLite CLI)
		t, err = time.Parse("2006-01-02 15:04:05", s)
	}
	return t, err
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column list: %w", err)
	}
	return string(data), nil
}

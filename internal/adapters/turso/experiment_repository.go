package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/database"
	"github.com/emiliopalmerini/socialab/internal/ports"
	"github.com/emiliopalmerini/socialab/internal/util"
)

const experimentColumns = `id, name, platform, primary_metric, status, min_sample_size,
	confidence_threshold, created_at, started_at, completed_at, notes`

type experimentRow struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Platform            string         `db:"platform"`
	PrimaryMetric       string         `db:"primary_metric"`
	Status              string         `db:"status"`
	MinSampleSize       int64          `db:"min_sample_size"`
	ConfidenceThreshold float64        `db:"confidence_threshold"`
	CreatedAt           string         `db:"created_at"`
	StartedAt           sql.NullString `db:"started_at"`
	CompletedAt         sql.NullString `db:"completed_at"`
	Notes               string         `db:"notes"`
}

type ExperimentRepository struct {
	db *sqlx.DB
}

func NewExperimentRepository(db *sqlx.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, experiment *domain.Experiment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiments (`+experimentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		experiment.ID,
		experiment.Name,
		experiment.Platform,
		string(experiment.PrimaryMetric),
		string(experiment.Status),
		experiment.MinSampleSize,
		experiment.ConfidenceThreshold,
		util.FormatTime(experiment.CreatedAt),
		util.NullTimePtr(experiment.StartedAt),
		util.NullTimePtr(experiment.CompletedAt),
		experiment.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	row, err := database.WithRetry(ctx, readRetries, func() (experimentRow, error) {
		var row experimentRow
		err := r.db.GetContext(ctx, &row, `SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)
		return row, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return experimentFromRow(row), nil
}

// List returns experiments newest first.
func (r *ExperimentRepository) List(ctx context.Context, opts ports.ListExperimentsOptions) ([]*domain.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments`
	var args []any
	if opts.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*opts.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := database.WithRetry(ctx, readRetries, func() ([]experimentRow, error) {
		var rows []experimentRow
		err := r.db.SelectContext(ctx, &rows, query, args...)
		return rows, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	experiments := make([]*domain.Experiment, len(rows))
	for i, row := range rows {
		experiments[i] = experimentFromRow(row)
	}
	return experiments, nil
}

// UpdateStatus keeps the first started_at across pause/resume cycles.
func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	query := `UPDATE experiments SET status = ?`
	args := []any{string(status)}
	switch status {
	case domain.StatusRunning:
		query += `, started_at = COALESCE(started_at, ?)`
		args = append(args, util.FormatTime(at))
	case domain.StatusCompleted:
		query += `, completed_at = ?`
		args = append(args, util.FormatTime(at))
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes dependents first so the cascade does not rely on
// per-connection foreign key enforcement.
func (r *ExperimentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM metric_observations WHERE variant_id IN (SELECT id FROM variants WHERE experiment_id = ?)`,
		`DELETE FROM variants WHERE experiment_id = ?`,
		`DELETE FROM result_snapshots WHERE experiment_id = ?`,
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete experiment data: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
	}

	return tx.Commit()
}

func experimentFromRow(row experimentRow) *domain.Experiment {
	return &domain.Experiment{
		ID:                  row.ID,
		Name:                row.Name,
		Platform:            row.Platform,
		PrimaryMetric:       domain.MetricType(row.PrimaryMetric),
		Status:              domain.Status(row.Status),
		MinSampleSize:       row.MinSampleSize,
		ConfidenceThreshold: row.ConfidenceThreshold,
		CreatedAt:           util.ParseTime(row.CreatedAt),
		StartedAt:           util.NullStringToTimePtr(row.StartedAt),
		CompletedAt:         util.NullStringToTimePtr(row.CompletedAt),
		Notes:               row.Notes,
	}
}

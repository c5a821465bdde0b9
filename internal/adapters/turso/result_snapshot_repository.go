package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/ports"
	"github.com/emiliopalmerini/socialab/internal/util"
)

type ResultSnapshotRepository struct {
	db *sqlx.DB
}

func NewResultSnapshotRepository(db *sqlx.DB) *ResultSnapshotRepository {
	return &ResultSnapshotRepository{db: db}
}

// Complete encodes the result before touching the database so an
// unencodable result leaves the experiment unchanged.
func (r *ResultSnapshotRepository) Complete(ctx context.Context, result *domain.ExperimentResult, completedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result snapshot: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE experiments SET status = ?, completed_at = ? WHERE id = ?`,
		string(domain.StatusCompleted), util.FormatTime(completedAt), result.ExperimentID)
	if err != nil {
		return fmt.Errorf("failed to complete experiment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete experiment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("experiment %s: %w", result.ExperimentID, domain.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO result_snapshots (experiment_id, taken_at, confidence, is_significant, winner_id, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.ExperimentID,
		util.FormatTime(completedAt),
		result.Confidence,
		util.BoolToInt64(result.IsSignificant),
		util.NullStringPtr(result.WinnerID),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save result snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

func (r *ResultSnapshotRepository) Latest(ctx context.Context, experimentID string) (*ports.ResultSnapshot, error) {
	var row struct {
		ID           int64  `db:"id"`
		ExperimentID string `db:"experiment_id"`
		TakenAt      string `db:"taken_at"`
		Payload      string `db:"payload"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT id, experiment_id, taken_at, payload
		FROM result_snapshots
		WHERE experiment_id = ?
		ORDER BY id DESC
		LIMIT 1`, experimentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("result snapshot for %s: %w", experimentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result snapshot: %w", err)
	}

	snapshot := &ports.ResultSnapshot{
		ID:           row.ID,
		ExperimentID: row.ExperimentID,
		TakenAt:      util.ParseTime(row.TakenAt),
	}
	if err := json.Unmarshal([]byte(row.Payload), &snapshot.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result snapshot: %w", err)
	}
	return snapshot, nil
}

package turso

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/database"
	"github.com/emiliopalmerini/socialab/internal/util"
)

type MetricStore struct {
	db *sqlx.DB
}

func NewMetricStore(db *sqlx.DB) *MetricStore {
	return &MetricStore{db: db}
}

// Record increments the variant's sample count and appends the
// observation in one transaction. Neither is visible without the other.
func (s *MetricStore) Record(ctx context.Context, obs *domain.MetricObservation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE variants SET sample_count = sample_count + 1 WHERE id = ?`, obs.VariantID)
	if err != nil {
		return fmt.Errorf("failed to update sample count: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update sample count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("variant %s: %w", obs.VariantID, domain.ErrNotFound)
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO metric_observations (variant_id, metric_type, value, recorded_at, post_ref)
		VALUES (?, ?, ?, ?, ?)`,
		obs.VariantID,
		string(obs.Metric),
		obs.Value,
		util.FormatTime(obs.RecordedAt),
		obs.PostRef,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		obs.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observation: %w", err)
	}
	return nil
}

type aggregateRow struct {
	Count int64   `db:"obs_count"`
	Mean  float64 `db:"obs_mean"`
}

func (s *MetricStore) Aggregate(ctx context.Context, variantID string, metric domain.MetricType) (domain.Aggregate, error) {
	row, err := database.WithRetry(ctx, readRetries, func() (aggregateRow, error) {
		var row aggregateRow
		err := s.db.GetContext(ctx, &row, `
			SELECT COUNT(*) AS obs_count, COALESCE(AVG(value), 0.0) AS obs_mean
			FROM metric_observations
			WHERE variant_id = ? AND metric_type = ?`, variantID, string(metric))
		return row, err
	})
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("failed to aggregate metric: %w", err)
	}
	return domain.Aggregate{Count: row.Count, Mean: row.Mean}, nil
}

func (s *MetricStore) AllValues(ctx context.Context, variantID string, metric domain.MetricType) ([]float64, error) {
	values, err := database.WithRetry(ctx, readRetries, func() ([]float64, error) {
		var values []float64
		err := s.db.SelectContext(ctx, &values, `
			SELECT value FROM metric_observations
			WHERE variant_id = ? AND metric_type = ?
			ORDER BY recorded_at, id`, variantID, string(metric))
		return values, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metric values: %w", err)
	}
	return values, nil
}

type snapshotRow struct {
	variantRow
	aggregateRow
}

type valueRow struct {
	VariantID string  `db:"variant_id"`
	Value     float64 `db:"value"`
}

// Snapshot reads variants, aggregates and raw values inside one
// transaction so they describe the same set of observations.
func (s *MetricStore) Snapshot(ctx context.Context, experimentID string, metric domain.MetricType) ([]domain.VariantAggregate, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rows []snapshotRow
	err = tx.SelectContext(ctx, &rows, `
		SELECT v.id, v.experiment_id, v.seq, v.name, v.variant_type, v.content,
			v.is_control, v.sample_count, v.created_at,
			COUNT(o.id) AS obs_count, COALESCE(AVG(o.value), 0.0) AS obs_mean
		FROM variants v
		LEFT JOIN metric_observations o ON o.variant_id = v.id AND o.metric_type = ?
		WHERE v.experiment_id = ?
		GROUP BY v.id
		ORDER BY v.seq`, string(metric), experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read variant aggregates: %w", err)
	}

	var values []valueRow
	err = tx.SelectContext(ctx, &values, `
		SELECT o.variant_id, o.value
		FROM metric_observations o
		JOIN variants v ON v.id = o.variant_id
		WHERE v.experiment_id = ? AND o.metric_type = ?
		ORDER BY o.recorded_at, o.id`, experimentID, string(metric))
	if err != nil {
		return nil, fmt.Errorf("failed to read metric values: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish snapshot: %w", err)
	}

	byVariant := make(map[string][]float64, len(rows))
	for _, v := range values {
		byVariant[v.VariantID] = append(byVariant[v.VariantID], v.Value)
	}

	aggregates := make([]domain.VariantAggregate, len(rows))
	for i, row := range rows {
		aggregates[i] = domain.VariantAggregate{
			Variant:   *variantFromRow(row.variantRow),
			Aggregate: domain.Aggregate{Count: row.Count, Mean: row.Mean},
			Values:    byVariant[row.ID],
		}
	}
	return aggregates, nil
}

package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/database"
	"github.com/emiliopalmerini/socialab/internal/util"
)

const variantColumns = `id, experiment_id, seq, name, variant_type, content, is_control, sample_count, created_at`

type variantRow struct {
	ID           string `db:"id"`
	ExperimentID string `db:"experiment_id"`
	Seq          int64  `db:"seq"`
	Name         string `db:"name"`
	VariantType  string `db:"variant_type"`
	Content      string `db:"content"`
	IsControl    int64  `db:"is_control"`
	SampleCount  int64  `db:"sample_count"`
	CreatedAt    string `db:"created_at"`
}

type VariantRepository struct {
	db *sqlx.DB
}

func NewVariantRepository(db *sqlx.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// Create inserts the variant with the next global sequence number and
// writes it back to variant.Seq.
func (r *VariantRepository) Create(ctx context.Context, variant *domain.Variant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin variant insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if variant.IsControl {
		var controls int
		err := tx.GetContext(ctx, &controls,
			`SELECT COUNT(*) FROM variants WHERE experiment_id = ? AND is_control = 1`, variant.ExperimentID)
		if err != nil {
			return fmt.Errorf("failed to check control variant: %w", err)
		}
		if controls > 0 {
			return domain.NewInputError(domain.CodeMultipleControls,
				"experiment %s already has a control variant", variant.ExperimentID)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO variants (`+variantColumns+`)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM variants), ?, ?, ?, ?, ?, ?)`,
		variant.ID,
		variant.ExperimentID,
		variant.Name,
		string(variant.Type),
		variant.Content,
		util.BoolToInt64(variant.IsControl),
		variant.SampleCount,
		util.FormatTime(variant.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}

	if err := tx.GetContext(ctx, &variant.Seq, `SELECT seq FROM variants WHERE id = ?`, variant.ID); err != nil {
		return fmt.Errorf("failed to read variant sequence: %w", err)
	}

	return tx.Commit()
}

func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	row, err := database.WithRetry(ctx, readRetries, func() (variantRow, error) {
		var row variantRow
		err := r.db.GetContext(ctx, &row, `SELECT `+variantColumns+` FROM variants WHERE id = ?`, id)
		return row, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return variantFromRow(row), nil
}

func (r *VariantRepository) ListByExperimentID(ctx context.Context, experimentID string) ([]*domain.Variant, error) {
	rows, err := database.WithRetry(ctx, readRetries, func() ([]variantRow, error) {
		var rows []variantRow
		err := r.db.SelectContext(ctx, &rows,
			`SELECT `+variantColumns+` FROM variants WHERE experiment_id = ? ORDER BY seq`, experimentID)
		return rows, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}

	variants := make([]*domain.Variant, len(rows))
	for i, row := range rows {
		variants[i] = variantFromRow(row)
	}
	return variants, nil
}

func variantFromRow(row variantRow) *domain.Variant {
	return &domain.Variant{
		ID:           row.ID,
		ExperimentID: row.ExperimentID,
		Seq:          row.Seq,
		Name:         row.Name,
		Type:         domain.VariantType(row.VariantType),
		Content:      row.Content,
		IsControl:    row.IsControl == 1,
		SampleCount:  row.SampleCount,
		CreatedAt:    util.ParseTime(row.CreatedAt),
	}
}

package turso_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/socialab/internal/adapters/turso"
	"github.com/emiliopalmerini/socialab/internal/domain"
)

func TestVariantRepository_SequenceIsMonotonic(t *testing.T) {
	repos := turso.NewRepositories(testDB(t))
	ctx := context.Background()

	a := seedExperiment(t, repos, "a", baseTime)
	b := seedExperiment(t, repos, "b", baseTime)

	v1 := seedVariant(t, repos, a.ID, "A1", true)
	v2 := seedVariant(t, repos, b.ID, "B1", true)
	v3 := seedVariant(t, repos, a.ID, "A2", false)

	assert.Equal(t, int64(1), v1.Seq)
	assert.Equal(t, int64(2), v2.Seq)
	assert.Equal(t, int64(3), v3.Seq)

	list, err := repos.Variants.ListByExperimentID(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, v1.ID, list[0].ID)
	assert.Equal(t, v3.ID, list[1].ID)
	assert.True(t, list[0].IsControl)
	assert.False(t, list[1].IsControl)
	assert.Equal(t, domain.VariantCaption, list[1].Type)
	assert.Equal(t, "A2 content", list[1].Content)
}

func TestVariantRepository_RejectsSecondControl(t *testing.T) {
	repos := turso.NewRepositories(testDB(t))
	ctx := context.Background()

	exp := seedExperiment(t, repos, "controls", baseTime)
	seedVariant(t, repos, exp.ID, "A", true)

	err := repos.Variants.Create(ctx, &domain.Variant{
		ID:           "second-control",
		ExperimentID: exp.ID,
		Name:         "B",
		Type:         domain.VariantHook,
		IsControl:    true,
		CreatedAt:    baseTime,
	})
	assert.ErrorIs(t, err, domain.ErrMultipleControls)

	list, err := repos.Variants.ListByExperimentID(ctx, exp.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestVariantRepository_GetUnknown(t *testing.T) {
	repos := turso.NewRepositories(testDB(t))

	_, err := repos.Variants.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

func TestExperimentWorkflow(t *testing.T) {
	testDB(t)

	expID := idFrom(t, mustRun(t, "experiment", "create", "Caption Test", "instagram", "--notes", "summer campaign"))
	controlID := idFrom(t, mustRun(t, "variant", "add", expID, "Original", "--content", "Sunset at the pier", "--control"))
	treatmentID := idFrom(t, mustRun(t, "variant", "add", expID, "Question", "--content", "Ever seen a sunset like this?"))

	out := mustRun(t, "experiment", "start", expID)
	assert.Contains(t, out, "is now running")

	for i := 0; i < 3; i++ {
		mustRun(t, "metric", "record", controlID, "engagement_rate", "2.0", "--post", fmt.Sprintf("ig:%d", i))
		mustRun(t, "metric", "record", treatmentID, "engagement_rate", "6.5", "--at", "2026-03-01T18:00:00Z")
	}

	out = mustRun(t, "experiment", "results", expID, "--json")
	var result domain.ExperimentResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, expID, result.ExperimentID)
	assert.Equal(t, int64(6), result.TotalSamples())
	assert.False(t, result.IsSignificant)
	assert.Nil(t, result.WinnerID)

	out = mustRun(t, "experiment", "show", expID)
	assert.Contains(t, out, "Caption Test")
	assert.Contains(t, out, "summer campaign")
	assert.Contains(t, out, "Original")
	assert.Contains(t, out, "Question")

	out = mustRun(t, "experiment", "complete", expID)
	assert.Contains(t, out, "Experiment results: Caption Test")
	assert.Contains(t, out, "Keep collecting data")

	out = mustRun(t, "experiment", "list", "--status", "completed")
	assert.Contains(t, out, expID)

	out = mustRun(t, "experiment", "delete", expID)
	assert.Contains(t, out, "Deleted experiment")

	_, err := run(t, "experiment", "results", expID)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "expected not found, got %v", err)
}

func TestExperimentStart_Errors(t *testing.T) {
	testDB(t)

	expID := idFrom(t, mustRun(t, "experiment", "create", "Lonely", "twitter"))
	mustRun(t, "variant", "add", expID, "Only", "--control")

	_, err := run(t, "experiment", "start", expID)
	assert.ErrorIs(t, err, domain.ErrInsufficientVariants)

	_, err = run(t, "variant", "add", expID, "Second control", "--control")
	assert.ErrorIs(t, err, domain.ErrMultipleControls)

	_, err = run(t, "experiment", "pause", expID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestExperimentCreate_Flags(t *testing.T) {
	testDB(t)

	expID := idFrom(t, mustRun(t, "experiment", "create", "Hook Test", "tiktok",
		"--metric", "shares", "--confidence", "90", "--min-samples", "40"))

	out := mustRun(t, "experiment", "show", expID)
	assert.Contains(t, out, "shares")
	assert.Contains(t, out, "90.0% confidence, 40 samples")

	_, err := run(t, "experiment", "create", "Bad", "tiktok", "--metric", "followers")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExperimentList(t *testing.T) {
	testDB(t)

	out := mustRun(t, "experiment", "list")
	assert.Contains(t, out, "No experiments found")

	mustRun(t, "experiment", "create", "First", "instagram")
	mustRun(t, "experiment", "create", "Second", "instagram")

	out = mustRun(t, "experiment", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")

	_, err := run(t, "experiment", "list", "--status", "archived")
	assert.Error(t, err)
}

func TestMetricRecord_Errors(t *testing.T) {
	testDB(t)

	_, err := run(t, "metric", "record", "missing", "likes", "3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = run(t, "metric", "record", "missing", "likes", "lots")
	assert.Error(t, err)

	_, err = run(t, "metric", "record", "missing", "likes", "3", "--at", "yesterday")
	assert.Error(t, err)
}

func TestMetricShow(t *testing.T) {
	testDB(t)

	expID := idFrom(t, mustRun(t, "experiment", "create", "Likes Test", "instagram"))
	variantID := idFrom(t, mustRun(t, "variant", "add", expID, "Original", "--control"))
	mustRun(t, "metric", "record", variantID, "likes", "10", "--at", "2026-03-01T18:00:00Z")
	mustRun(t, "metric", "record", variantID, "likes", "30", "--at", "2026-03-01T19:00:00Z")

	out := mustRun(t, "metric", "show", variantID, "likes", "--values")
	assert.Contains(t, out, "Samples: 2")
	assert.Contains(t, out, "Mean:    20.0000")
	assert.Contains(t, out, "  10\n  30\n")

	_, err := run(t, "metric", "record", variantID, "likes", "Inf")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = run(t, "metric", "show", "missing", "likes")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMigrateCommand(t *testing.T) {
	testDB(t)

	out := mustRun(t, "migrate")
	assert.Contains(t, out, "No migrations to run (version 2)")

	out = mustRun(t, "migrate", "1")
	assert.Contains(t, out, "Migrated to version 1")

	out = mustRun(t, "migrate")
	assert.Contains(t, out, "Migrated from version 1 to 2")

	_, err := run(t, "migrate", "abc")
	assert.Error(t, err)
}

func TestAppContextClose_NilDB(t *testing.T) {
	a := &AppContext{}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("Close() on nil DB should not error, got: %v", err)
	}
}

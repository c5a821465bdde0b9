package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func row(id string, seq int64, control bool, mean float64, count int64) VariantAggregate {
	values := make([]float64, count)
	for i := range values {
		values[i] = mean
	}
	return VariantAggregate{
		Variant:   Variant{ID: id, Name: "Variant " + id, Seq: seq, IsControl: control},
		Aggregate: Aggregate{Count: count, Mean: mean},
		Values:    values,
	}
}

func testExperiment() Experiment {
	return Experiment{
		ID:                  "exp-1",
		Name:                "Caption Test",
		PrimaryMetric:       MetricEngagementRate,
		Status:              StatusRunning,
		MinSampleSize:       DefaultMinSampleSize,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

func TestSynthesize_SignificantWinner(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 2.0, 500),
		row("v", 2, false, 10.0, 500),
	})

	if !result.IsSignificant {
		t.Fatalf("expected significant result, confidence=%v", result.Confidence)
	}
	if result.Confidence < 95 {
		t.Errorf("expected confidence >= 95, got %v", result.Confidence)
	}
	if result.WinnerID == nil || *result.WinnerID != "v" {
		t.Fatalf("expected winner v, got %v", result.WinnerID)
	}
	if result.WinnerName == nil || *result.WinnerName != "Variant v" {
		t.Errorf("unexpected winner name %v", result.WinnerName)
	}
	assertFloatNear(t, "LiftPercent", 400, result.LiftPercent)
	if len(result.Variants) != 2 {
		t.Errorf("expected 2 variant rows, got %d", len(result.Variants))
	}
}

func TestSynthesize_TinyDifferenceNotSignificant(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 5.0, 100),
		row("v", 2, false, 5.1, 100),
	})

	if result.IsSignificant {
		t.Error("expected non-significant result")
	}
	if result.Confidence >= 90 {
		t.Errorf("expected confidence < 90, got %v", result.Confidence)
	}
	if result.WinnerID != nil || result.WinnerName != nil {
		t.Error("non-significant result must not name a winner")
	}
}

func TestSynthesize_NoObservations(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 0, 0),
		row("v", 2, false, 0, 0),
	})

	if result.IsSignificant || result.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v (significant=%v)", result.Confidence, result.IsSignificant)
	}
	if result.WinnerName != nil {
		t.Error("expected no winner")
	}
	if len(result.Recommendations) == 0 || !strings.HasPrefix(result.Recommendations[0], "Keep collecting data") {
		t.Errorf("expected a keep-collecting recommendation first, got %v", result.Recommendations)
	}
}

func TestSynthesize_NoVariants(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), nil)

	if result.IsSignificant || result.Confidence != 0 {
		t.Error("expected zero-confidence result")
	}
	if result.Variants == nil {
		t.Error("expected non-nil variant rows")
	}
	if result.ExperimentName != "Caption Test" {
		t.Errorf("unexpected name %q", result.ExperimentName)
	}
}

func TestSynthesize_NoControlKeepsPartialData(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("a", 1, false, 2.0, 500),
		row("b", 2, false, 10.0, 500),
	})

	if result.IsSignificant || result.Confidence != 0 || result.LiftPercent != 0 {
		t.Errorf("expected degenerate result, got %+v", result)
	}
	if len(result.Variants) != 2 {
		t.Errorf("expected partial variant data, got %d rows", len(result.Variants))
	}
}

func TestSynthesize_ControlBeatsCandidates(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 10.0, 500),
		row("v", 2, false, 2.0, 500),
	})

	if !result.IsSignificant {
		t.Fatalf("expected significant result, confidence=%v", result.Confidence)
	}
	if result.WinnerID == nil || *result.WinnerID != "c" {
		t.Errorf("expected control to win, got %v", result.WinnerID)
	}
	if result.LiftPercent != 0 {
		t.Errorf("expected lift forced to 0, got %v", result.LiftPercent)
	}
}

func TestSynthesize_TieBreaksByCreationOrder(t *testing.T) {
	// Rows arrive out of creation order; the earliest created control and
	// the earliest created of the tied candidates must be used.
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("late", 4, false, 10.0, 500),
		row("c2", 3, true, 9.0, 500),
		row("early", 2, false, 10.0, 500),
		row("c1", 1, true, 2.0, 500),
	})

	if result.WinnerID == nil || *result.WinnerID != "early" {
		t.Fatalf("expected earliest tied candidate to win, got %v", result.WinnerID)
	}
	assertFloatNear(t, "LiftPercent", 400, result.LiftPercent)
	if result.Variants[0].ID != "c1" {
		t.Errorf("expected rows in creation order, first is %s", result.Variants[0].ID)
	}
}

func TestSynthesize_OnlyControl(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 4.0, 200),
	})

	if result.Confidence != 0 || result.IsSignificant {
		t.Errorf("control against itself must not be significant, got %v", result.Confidence)
	}
	if result.LiftPercent != 0 {
		t.Errorf("expected zero lift, got %v", result.LiftPercent)
	}
}

func TestSynthesize_ThresholdFromExperiment(t *testing.T) {
	exp := testExperiment()
	exp.ConfidenceThreshold = 99.95

	result := NewAnalyzer("").Synthesize(exp, []VariantAggregate{
		row("c", 1, true, 2.0, 500),
		row("v", 2, false, 10.0, 500),
	})

	if result.IsSignificant {
		t.Error("99.9 table confidence must not satisfy a 99.95 threshold")
	}
	if result.WinnerID != nil {
		t.Error("expected no winner")
	}
}

func TestSynthesize_StdDevFromValues(t *testing.T) {
	r := row("c", 1, true, 0, 0)
	r.Values = []float64{1, 2, 3, 4}
	r.Count = 4
	r.Mean = 2.5

	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{r})
	// sample standard deviation of 1..4
	assertFloatNear(t, "StdDev", 1.290994, result.Variants[0].StdDev)
}

func TestSynthesize_NonFiniteValuesResolveToZero(t *testing.T) {
	treatment := row("v", 2, false, math.Inf(1), 1)
	treatment.Values = []float64{math.Inf(1), 1}
	treatment.Count = 2

	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 2.0, 5),
		treatment,
	})

	if result.LiftPercent != 0 {
		t.Errorf("expected lift 0 for infinite mean, got %v", result.LiftPercent)
	}
	if result.Variants[1].Mean != 0 || result.Variants[1].StdDev != 0 {
		t.Errorf("expected non-finite mean and stddev to be 0, got %+v", result.Variants[1])
	}
	if _, err := json.Marshal(result); err != nil {
		t.Fatalf("result must stay encodable: %v", err)
	}
}

func TestSynthesize_NeverNamesWinnerWhenNotSignificant(t *testing.T) {
	cases := [][]VariantAggregate{
		{row("c", 1, true, 1.0, 3), row("v", 2, false, 9.0, 3)},
		{row("c", 1, true, 5.0, 50), row("v", 2, false, 5.5, 50)},
		{row("c", 1, true, 0, 0), row("v", 2, false, 50, 10)},
	}
	for i, rows := range cases {
		result := NewAnalyzer("").Synthesize(testExperiment(), rows)
		if !result.IsSignificant && (result.WinnerID != nil || result.WinnerName != nil) {
			t.Errorf("case %d: winner named on non-significant result", i)
		}
	}
}

func TestExperimentResult_Summary(t *testing.T) {
	result := NewAnalyzer("").Synthesize(testExperiment(), []VariantAggregate{
		row("c", 1, true, 2.0, 500),
		row("v", 2, false, 10.0, 500),
	})

	summary := result.Summary()
	for _, want := range []string{"Experiment results: Caption Test", "Winner: Variant v", "Variant c (control)", "Recommendations:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	empty := NewAnalyzer("").Synthesize(testExperiment(), nil)
	if !strings.Contains(empty.Summary(), "Not significant yet") {
		t.Errorf("expected not-significant summary, got:\n%s", empty.Summary())
	}
}

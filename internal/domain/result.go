package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// VariantResult is one per-variant row of an experiment result.
type VariantResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IsControl  bool    `json:"is_control"`
	Mean       float64 `json:"metric_value"`
	StdDev     float64 `json:"std_dev"`
	SampleSize int64   `json:"sample_size"`
}

// ExperimentResult is the verdict for an experiment. It is recomputed from
// stored observations on every request.
type ExperimentResult struct {
	ExperimentID        string          `json:"experiment_id"`
	ExperimentName      string          `json:"experiment_name"`
	WinnerID            *string         `json:"winner_id,omitempty"`
	WinnerName          *string         `json:"winner_name,omitempty"`
	PrimaryMetric       MetricType      `json:"primary_metric"`
	Confidence          float64         `json:"confidence"`
	IsSignificant       bool            `json:"is_significant"`
	LiftPercent         float64         `json:"lift_percent"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	MinSampleSize       int64           `json:"min_sample_size"`
	Variants            []VariantResult `json:"variants"`
	Recommendations     []string        `json:"recommendations"`
}

// TotalSamples sums the sample sizes of all variants.
func (r *ExperimentResult) TotalSamples() int64 {
	var total int64
	for _, v := range r.Variants {
		total += v.SampleSize
	}
	return total
}

// Synthesize combines per-variant aggregates into an ExperimentResult.
// It never fails: missing or degenerate data resolves to a zero-confidence,
// non-significant result.
func (a Analyzer) Synthesize(exp Experiment, rows []VariantAggregate) ExperimentResult {
	rows = sortedBySeq(rows)

	result := ExperimentResult{
		ExperimentID:        exp.ID,
		ExperimentName:      exp.Name,
		PrimaryMetric:       exp.PrimaryMetric,
		ConfidenceThreshold: exp.ConfidenceThreshold,
		MinSampleSize:       exp.MinSampleSize,
		Variants:            make([]VariantResult, 0, len(rows)),
		Recommendations:     []string{},
	}
	for _, row := range rows {
		result.Variants = append(result.Variants, variantResult(row))
	}

	control, ok := findControl(rows)
	if !ok {
		return result
	}

	best := bestCandidate(rows, control)

	if control.Count > 0 && best.Count > 0 {
		result.LiftPercent = Lift(control.Mean, best.Mean)
		result.Confidence = finite(a.Confidence(control.Mean, control.Count, best.Mean, best.Count))
		result.IsSignificant = result.Confidence >= exp.ConfidenceThreshold
	}

	winner := best
	if control.Mean > best.Mean {
		winner = control
		result.LiftPercent = 0
	}

	if result.IsSignificant {
		id, name := winner.Variant.ID, winner.Variant.Name
		result.WinnerID = &id
		result.WinnerName = &name
	}

	result.Recommendations = Recommendations(rows, control, result.IsSignificant, exp.PrimaryMetric)
	return result
}

func variantResult(row VariantAggregate) VariantResult {
	vr := VariantResult{
		ID:         row.Variant.ID,
		Name:       row.Variant.Name,
		IsControl:  row.Variant.IsControl,
		Mean:       finite(row.Mean),
		SampleSize: row.Count,
	}
	if len(row.Values) > 1 {
		vr.StdDev = finite(stat.StdDev(row.Values, nil))
	}
	return vr
}

// finite maps NaN and infinities to 0 so degenerate inputs never leak into
// results.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// sortedBySeq returns rows in creation order without mutating the input.
func sortedBySeq(rows []VariantAggregate) []VariantAggregate {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b VariantAggregate) int {
		return cmp.Compare(a.Variant.Seq, b.Variant.Seq)
	})
	return out
}

// findControl returns the first control in creation order.
func findControl(rows []VariantAggregate) (VariantAggregate, bool) {
	for _, row := range rows {
		if row.Variant.IsControl {
			return row, true
		}
	}
	return VariantAggregate{}, false
}

// bestCandidate returns the non-control variant with the highest mean,
// earliest created on ties. With no candidates the control is returned.
func bestCandidate(rows []VariantAggregate, control VariantAggregate) VariantAggregate {
	var best VariantAggregate
	found := false
	for _, row := range rows {
		if row.Variant.IsControl {
			continue
		}
		if !found || row.Mean > best.Mean {
			best = row
			found = true
		}
	}
	if !found {
		return control
	}
	return best
}

// Summary renders the result as the text report shown to the operator.
func (r *ExperimentResult) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Experiment results: %s\n", r.ExperimentName)
	fmt.Fprintf(&b, "Primary metric: %s\n\n", r.PrimaryMetric)

	if r.IsSignificant && r.WinnerID != nil {
		fmt.Fprintf(&b, "Winner: %s\n", *r.WinnerName)
		fmt.Fprintf(&b, "Lift: %+.1f%%\n", r.LiftPercent)
		fmt.Fprintf(&b, "Confidence: %.1f%%\n", r.Confidence)
	} else {
		b.WriteString("Not significant yet, more data needed\n")
		fmt.Fprintf(&b, "Current confidence: %.1f%% (need >= %.1f%%)\n", r.Confidence, r.ConfidenceThreshold)
	}

	b.WriteString("\nVariants:\n")
	for _, v := range r.Variants {
		marker := "-"
		label := ""
		if v.IsControl {
			marker = "*"
			label = " (control)"
		}
		fmt.Fprintf(&b, "  %s %s%s: %.2f (n=%d)\n", marker, v.Name, label, v.Mean, v.SampleSize)
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

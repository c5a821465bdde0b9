package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ConfidenceMode selects how a z-score becomes a confidence percentage.
type ConfidenceMode string

const (
	// ConfidenceTable uses the fixed lookup table. Results are reproducible
	// across implementations.
	ConfidenceTable ConfidenceMode = "table"
	// ConfidenceExact uses the two-sided standard normal CDF.
	ConfidenceExact ConfidenceMode = "exact"
)

func ParseConfidenceMode(s string) (ConfidenceMode, error) {
	switch m := ConfidenceMode(s); m {
	case ConfidenceTable, ConfidenceExact:
		return m, nil
	case "":
		return ConfidenceTable, nil
	}
	return "", fmt.Errorf("unknown confidence mode %q", s)
}

// Lift returns the percentage change of test relative to control.
// A non-positive control yields 0: this is a policy floor, not a real lift.
// Non-finite inputs also yield 0.
func Lift(control, test float64) float64 {
	if control <= 0 {
		return 0
	}
	return finite((test - control) / control * 100)
}

// zScoreTiers is evaluated top-down; the first threshold met wins.
var zScoreTiers = []struct {
	z          float64
	confidence float64
}{
	{3.29, 99.9},
	{2.576, 99.0},
	{2.326, 98.0},
	{1.96, 95.0},
	{1.645, 90.0},
	{1.28, 80.0},
	{1.036, 70.0},
	{0.842, 60.0},
	{0.674, 50.0},
}

// ZToConfidence maps a z-score to an approximate confidence percentage
// using the fixed table. Below the lowest tier it interpolates linearly
// towards 0.
func ZToConfidence(z float64) float64 {
	for _, tier := range zScoreTiers {
		if z >= tier.z {
			return tier.confidence
		}
	}
	return math.Max(0, z/0.674*50)
}

// ZToConfidenceExact maps a z-score to the two-sided normal confidence.
func ZToConfidenceExact(z float64) float64 {
	if z <= 0 || math.IsNaN(z) {
		return 0
	}
	return (2*distuv.UnitNormal.CDF(z) - 1) * 100
}

// TwoProportionZ returns the z-score of a two-proportion test on rates
// given as percentages. ok is false when the inputs are degenerate.
func TwoProportionZ(controlRatePct float64, controlN int64, testRatePct float64, testN int64) (z float64, ok bool) {
	if controlN < 2 || testN < 2 {
		return 0, false
	}

	p1 := math.Min(controlRatePct/100, 1)
	p2 := math.Min(testRatePct/100, 1)
	n1 := float64(controlN)
	n2 := float64(testN)

	pool := (p1*n1 + p2*n2) / (n1 + n2)
	if pool <= 0 || pool >= 1 {
		return 0, false
	}

	se := math.Sqrt(pool * (1 - pool) * (1/n1 + 1/n2))
	if se <= 0 || math.IsNaN(se) {
		return 0, false
	}

	return math.Abs(p2-p1) / se, true
}

// TwoProportionConfidence runs the two-proportion z-test and maps the
// result through the lookup table.
func TwoProportionConfidence(controlRatePct float64, controlN int64, testRatePct float64, testN int64) float64 {
	z, ok := TwoProportionZ(controlRatePct, controlN, testRatePct, testN)
	if !ok {
		return 0
	}
	return ZToConfidence(z)
}

// Analyzer turns variant aggregates into experiment results.
type Analyzer struct {
	Mode ConfidenceMode
}

// NewAnalyzer returns an analyzer; an empty mode means the table.
func NewAnalyzer(mode ConfidenceMode) Analyzer {
	if mode == "" {
		mode = ConfidenceTable
	}
	return Analyzer{Mode: mode}
}

// Confidence is TwoProportionConfidence honoring the analyzer's mode.
func (a Analyzer) Confidence(controlRatePct float64, controlN int64, testRatePct float64, testN int64) float64 {
	z, ok := TwoProportionZ(controlRatePct, controlN, testRatePct, testN)
	if !ok {
		return 0
	}
	if a.Mode == ConfidenceExact {
		return ZToConfidenceExact(z)
	}
	return ZToConfidence(z)
}

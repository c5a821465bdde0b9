package domain

import "fmt"

// MinTotalSamples is the aggregate sample count below which a
// non-significant result asks for more data.
const MinTotalSamples = 100

const (
	underperformThreshold = -0.2
	outperformThreshold   = 0.5
)

// Recommendations returns advisory text for an experiment outcome, in a
// fixed order: sample size, per-variant flags, metric tip.
func Recommendations(rows []VariantAggregate, control VariantAggregate, significant bool, metric MetricType) []string {
	recs := []string{}

	var total int64
	for _, row := range rows {
		total += row.Count
	}

	if !significant {
		if total < MinTotalSamples {
			recs = append(recs, fmt.Sprintf(
				"Keep collecting data: %d samples so far, aim for at least %d per variant",
				total, MinTotalSamples))
		} else {
			recs = append(recs, "No meaningful difference between variants: pick the cheaper option")
		}
	}

	if control.Mean > 0 {
		for _, row := range rows {
			if row.Variant.IsControl {
				continue
			}
			diff := (row.Mean - control.Mean) / control.Mean
			switch {
			case diff < underperformThreshold:
				recs = append(recs, fmt.Sprintf(
					"Variant '%s' underperforms the control (%.1f%%): consider retiring it",
					row.Variant.Name, diff*100))
			case diff > outperformThreshold:
				recs = append(recs, fmt.Sprintf(
					"Variant '%s' outperforms the control (+%.1f%%): roll it out fully",
					row.Variant.Name, diff*100))
			}
		}
	}

	if tip := MetricTip(metric); tip != "" {
		recs = append(recs, tip)
	}

	return recs
}

// MetricTip returns canned content advice for the given metric.
func MetricTip(metric MetricType) string {
	switch metric {
	case MetricEngagementRate:
		return "Engaging content: ask questions, run polls, take a stance, hit an emotion"
	case MetricLikes:
		return "More likes: lead with a strong visual and keep the caption short"
	case MetricComments:
		return "More comments: end with an open question or invite opinions"
	case MetricShares:
		return "More shares: practical value, identity signals, social currency"
	case MetricSaves:
		return "More saves: checklists, tutorials and reference material people return to"
	case MetricClicks:
		return "More clicks: explicit CTA, curiosity gap, urgency words"
	case MetricReach:
		return "More reach: post when the audience is online and ride trending formats"
	case MetricImpressions:
		return "More impressions: post consistently and reuse top performers across formats"
	case MetricConversions:
		return "More conversions: one offer per post, remove friction between click and checkout"
	case MetricCTR:
		return "Higher CTR: align the hook with the landing page and put the link first"
	}
	return ""
}

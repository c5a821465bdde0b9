package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusRunning, StatusPaused, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine allows s -> next.
// Completion is reachable from every other state, cancelled included.
func (s Status) CanTransitionTo(next Status) bool {
	switch next {
	case StatusRunning:
		return s == StatusDraft || s == StatusPaused
	case StatusPaused:
		return s == StatusRunning
	case StatusCompleted:
		return s.Valid() && s != StatusCompleted
	case StatusCancelled:
		return !s.IsTerminal()
	}
	return false
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// MetricType identifies the kind of metric an observation measures.
type MetricType string

const (
	MetricEngagementRate MetricType = "engagement_rate"
	MetricLikes          MetricType = "likes"
	MetricComments       MetricType = "comments"
	MetricShares         MetricType = "shares"
	MetricSaves          MetricType = "saves"
	MetricClicks         MetricType = "clicks"
	MetricReach          MetricType = "reach"
	MetricImpressions    MetricType = "impressions"
	MetricConversions    MetricType = "conversions"
	MetricCTR            MetricType = "ctr"
)

var MetricTypes = []MetricType{
	MetricEngagementRate, MetricLikes, MetricComments, MetricShares, MetricSaves,
	MetricClicks, MetricReach, MetricImpressions, MetricConversions, MetricCTR,
}

func (m MetricType) Valid() bool {
	switch m {
	case MetricEngagementRate, MetricLikes, MetricComments, MetricShares, MetricSaves,
		MetricClicks, MetricReach, MetricImpressions, MetricConversions, MetricCTR:
		return true
	}
	return false
}

func ParseMetricType(s string) (MetricType, error) {
	m := MetricType(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric type %q", s)
	}
	return m, nil
}

// VariantType identifies which aspect of the content a variant changes.
type VariantType string

const (
	VariantCaption     VariantType = "caption"
	VariantHashtagSet  VariantType = "hashtag_set"
	VariantPostingTime VariantType = "posting_time"
	VariantContentType VariantType = "content_type"
	VariantVisualStyle VariantType = "visual_style"
	VariantCTA         VariantType = "cta"
	VariantHook        VariantType = "hook"
)

var VariantTypes = []VariantType{
	VariantCaption, VariantHashtagSet, VariantPostingTime, VariantContentType,
	VariantVisualStyle, VariantCTA, VariantHook,
}

func (v VariantType) Valid() bool {
	switch v {
	case VariantCaption, VariantHashtagSet, VariantPostingTime, VariantContentType,
		VariantVisualStyle, VariantCTA, VariantHook:
		return true
	}
	return false
}

func ParseVariantType(s string) (VariantType, error) {
	v := VariantType(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown variant type %q", s)
	}
	return v, nil
}

const (
	DefaultMinSampleSize       = 100
	DefaultConfidenceThreshold = 95.0
)

// Experiment is a single A/B test comparing content variants on a platform.
type Experiment struct {
	ID                  string
	Name                string
	Platform            string
	PrimaryMetric       MetricType
	Status              Status
	MinSampleSize       int64
	ConfidenceThreshold float64
	CreatedAt           time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	Notes               string
}

// Variant is one candidate content treatment within an experiment.
// Seq is the creation sequence number and the only tie-break between
// otherwise equal variants.
type Variant struct {
	ID           string
	ExperimentID string
	Seq          int64
	Name         string
	Type         VariantType
	Content      string
	IsControl    bool
	SampleCount  int64
	CreatedAt    time.Time
}

// MetricObservation is a single recorded metric value for a variant.
type MetricObservation struct {
	ID         int64
	VariantID  string
	Metric     MetricType
	Value      float64
	RecordedAt time.Time
	PostRef    string
}

// Aggregate is the count and arithmetic mean of a variant's observations
// for one metric. The zero value means no observations.
type Aggregate struct {
	Count int64
	Mean  float64
}

// VariantAggregate is a variant together with its primary-metric data,
// read from one consistent snapshot.
type VariantAggregate struct {
	Variant Variant
	Aggregate
	Values []float64
}

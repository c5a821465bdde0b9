// Package experiment implements the A/B experiment lifecycle on top of the
// repository ports: creation, variants, metric recording and results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emiliopalmerini/socialab/internal/adapters/otel"
	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/ports"
)

// DefaultListLimit caps unfiltered experiment listings.
const DefaultListLimit = 20

// Deps are the collaborators a Service needs.
type Deps struct {
	Experiments ports.ExperimentRepository
	Variants    ports.VariantRepository
	Metrics     ports.MetricStore
	Snapshots   ports.ResultSnapshotRepository
	Exporter    ports.MetricsExporter
}

// Service is the inbound API of the experiment engine.
type Service struct {
	experiments ports.ExperimentRepository
	variants    ports.VariantRepository
	metrics     ports.MetricStore
	snapshots   ports.ResultSnapshotRepository
	exporter    ports.MetricsExporter

	analyzer domain.Analyzer
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAnalyzer(a domain.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithIDGenerator replaces uuid.NewString for experiment and variant ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		experiments: deps.Experiments,
		variants:    deps.Variants,
		metrics:     deps.Metrics,
		snapshots:   deps.Snapshots,
		exporter:    deps.Exporter,
		analyzer:    domain.NewAnalyzer(domain.ConfidenceTable),
		logger:      zerolog.Nop(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if s.exporter == nil {
		s.exporter = otel.NewNoOpExporter()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateExperimentInput struct {
	Name     string `validate:"required,max=200"`
	Platform string `validate:"required,max=50"`
	// PrimaryMetric defaults to engagement_rate.
	PrimaryMetric domain.MetricType `validate:"omitempty,metric"`
	// MinSampleSize defaults to domain.DefaultMinSampleSize when nil.
	MinSampleSize *int64 `validate:"omitempty,gte=0"`
	// ConfidenceThreshold defaults to domain.DefaultConfidenceThreshold when nil.
	ConfidenceThreshold *float64 `validate:"omitempty,gte=0,lte=100"`
	Notes               string
}

func (s *Service) CreateExperiment(ctx context.Context, in CreateExperimentInput) (*domain.Experiment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exp := &domain.Experiment{
		ID:                  s.newID(),
		Name:                in.Name,
		Platform:            in.Platform,
		PrimaryMetric:       domain.MetricEngagementRate,
		Status:              domain.StatusDraft,
		MinSampleSize:       domain.DefaultMinSampleSize,
		ConfidenceThreshold: domain.DefaultConfidenceThreshold,
		CreatedAt:           s.now(),
		Notes:               in.Notes,
	}
	if in.PrimaryMetric != "" {
		exp.PrimaryMetric = in.PrimaryMetric
	}
	if in.MinSampleSize != nil {
		exp.MinSampleSize = *in.MinSampleSize
	}
	if in.ConfidenceThreshold != nil {
		exp.ConfidenceThreshold = *in.ConfidenceThreshold
	}

	if err := s.experiments.Create(ctx, exp); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("experiment_id", exp.ID).
		Str("platform", exp.Platform).
		Str("metric", string(exp.PrimaryMetric)).
		Msg("experiment created")
	return exp, nil
}

type AddVariantInput struct {
	ExperimentID string             `validate:"required"`
	Name         string             `validate:"required,max=200"`
	Type         domain.VariantType `validate:"omitempty,variant_type"`
	Content      string
	IsControl    bool
}

// AddVariant attaches a variant to a non-terminal experiment.
func (s *Service) AddVariant(ctx context.Context, in AddVariantInput) (*domain.Variant, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exp, err := s.experiments.GetByID(ctx, in.ExperimentID)
	if err != nil {
		return nil, err
	}
	if exp.Status.IsTerminal() {
		return nil, domain.NewInputError(domain.CodeInvalidArgument,
			"experiment %s is %s; variants can no longer be added", exp.ID, exp.Status)
	}

	variant := &domain.Variant{
		ID:           s.newID(),
		ExperimentID: exp.ID,
		Name:         in.Name,
		Type:         domain.VariantCaption,
		Content:      in.Content,
		IsControl:    in.IsControl,
		CreatedAt:    s.now(),
	}
	if in.Type != "" {
		variant.Type = in.Type
	}

	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("experiment_id", exp.ID).
		Str("variant_id", variant.ID).
		Bool("control", variant.IsControl).
		Msg("variant added")
	return variant, nil
}

// StartExperiment moves a draft or paused experiment to running. It needs
// at least two variants, one of them the control.
func (s *Service) StartExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	exp, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exp.Status.CanTransitionTo(domain.StatusRunning) {
		return nil, domain.TransitionError(exp.Status, domain.StatusRunning)
	}

	variants, err := s.variants.ListByExperimentID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(variants) < 2 {
		return nil, domain.NewInputError(domain.CodeInsufficientVariants,
			"experiment %s has %d variant(s); at least 2 are required", id, len(variants))
	}
	hasControl := false
	for _, v := range variants {
		if v.IsControl {
			hasControl = true
			break
		}
	}
	if !hasControl {
		return nil, domain.NewInputError(domain.CodeMissingControl,
			"experiment %s has no control variant", id)
	}

	return s.transition(ctx, exp, domain.StatusRunning)
}

func (s *Service) PauseExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.transitionByID(ctx, id, domain.StatusPaused)
}

func (s *Service) CancelExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.transitionByID(ctx, id, domain.StatusCancelled)
}

func (s *Service) transitionByID(ctx context.Context, id string, to domain.Status) (*domain.Experiment, error) {
	exp, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exp.Status.CanTransitionTo(to) {
		return nil, domain.TransitionError(exp.Status, to)
	}
	return s.transition(ctx, exp, to)
}

// transition persists an already checked status change and returns the
// stored experiment.
func (s *Service) transition(ctx context.Context, exp *domain.Experiment, to domain.Status) (*domain.Experiment, error) {
	if err := s.experiments.UpdateStatus(ctx, exp.ID, to, s.now()); err != nil {
		return nil, err
	}
	s.export("transition", s.exporter.ExportTransition(ctx, exp, to))

	s.logger.Info().
		Str("experiment_id", exp.ID).
		Str("from", string(exp.Status)).
		Str("status", string(to)).
		Msg("experiment status changed")

	return s.experiments.GetByID(ctx, exp.ID)
}

type RecordMetricInput struct {
	VariantID string            `validate:"required"`
	Metric    domain.MetricType `validate:"required,metric"`
	Value     float64           `validate:"finite"`
	// RecordedAt defaults to the service clock.
	RecordedAt *time.Time
	PostRef    string
}

// RecordMetric appends one observation. Any finite value is stored as
// given and the experiment's status is not checked.
func (s *Service) RecordMetric(ctx context.Context, in RecordMetricInput) (*domain.MetricObservation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	variant, err := s.variants.GetByID(ctx, in.VariantID)
	if err != nil {
		return nil, err
	}

	obs := &domain.MetricObservation{
		VariantID:  variant.ID,
		Metric:     in.Metric,
		Value:      in.Value,
		RecordedAt: s.now(),
		PostRef:    in.PostRef,
	}
	if in.RecordedAt != nil {
		obs.RecordedAt = *in.RecordedAt
	}

	if err := s.metrics.Record(ctx, obs); err != nil {
		return nil, err
	}

	if exp, err := s.experiments.GetByID(ctx, variant.ExperimentID); err == nil {
		s.export("observation", s.exporter.ExportObservation(ctx, exp, obs))
	}

	s.logger.Debug().
		Str("variant_id", obs.VariantID).
		Str("metric", string(obs.Metric)).
		Float64("value", obs.Value).
		Msg("metric recorded")
	return obs, nil
}

// GetResults recomputes the verdict from stored observations.
func (s *Service) GetResults(ctx context.Context, id string) (*domain.ExperimentResult, error) {
	exp, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.results(ctx, exp)
}

func (s *Service) results(ctx context.Context, exp *domain.Experiment) (*domain.ExperimentResult, error) {
	result, err := s.compute(ctx, exp)
	if err != nil {
		return nil, err
	}
	s.export("result", s.exporter.ExportResult(ctx, exp, result))
	return result, nil
}

func (s *Service) compute(ctx context.Context, exp *domain.Experiment) (*domain.ExperimentResult, error) {
	rows, err := s.metrics.Snapshot(ctx, exp.ID, exp.PrimaryMetric)
	if err != nil {
		return nil, err
	}

	result := s.analyzer.Synthesize(*exp, rows)

	s.logger.Debug().
		Str("experiment_id", exp.ID).
		Float64("confidence", result.Confidence).
		Bool("significant", result.IsSignificant).
		Float64("lift", result.LiftPercent).
		Msg("results computed")
	return &result, nil
}

// CompleteExperiment closes the experiment from any other state and stores
// a snapshot of its final result together with the status change.
// Completing an already completed experiment only returns the current
// results.
func (s *Service) CompleteExperiment(ctx context.Context, id string) (*domain.ExperimentResult, error) {
	exp, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Status == domain.StatusCompleted {
		return s.results(ctx, exp)
	}
	if !exp.Status.CanTransitionTo(domain.StatusCompleted) {
		return nil, domain.TransitionError(exp.Status, domain.StatusCompleted)
	}

	result, err := s.compute(ctx, exp)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Complete(ctx, result, s.now()); err != nil {
		return nil, err
	}

	s.export("transition", s.exporter.ExportTransition(ctx, exp, domain.StatusCompleted))
	s.export("result", s.exporter.ExportResult(ctx, exp, result))

	s.logger.Info().
		Str("experiment_id", exp.ID).
		Str("from", string(exp.Status)).
		Str("status", string(domain.StatusCompleted)).
		Msg("experiment status changed")
	return result, nil
}

// DeleteExperiment removes the experiment and everything attached to it.
func (s *Service) DeleteExperiment(ctx context.Context, id string) error {
	if err := s.experiments.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("experiment_id", id).Msg("experiment deleted")
	return nil
}

// ListExperiments returns experiments newest first. Without a status
// filter at most DefaultListLimit are returned.
func (s *Service) ListExperiments(ctx context.Context, status *domain.Status) ([]*domain.Experiment, error) {
	opts := ports.ListExperimentsOptions{Status: status}
	if status == nil {
		opts.Limit = DefaultListLimit
	}
	return s.experiments.List(ctx, opts)
}

func (s *Service) GetExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.experiments.GetByID(ctx, id)
}

// ListVariants returns the experiment's variants in creation order.
func (s *Service) ListVariants(ctx context.Context, experimentID string) ([]*domain.Variant, error) {
	if _, err := s.experiments.GetByID(ctx, experimentID); err != nil {
		return nil, err
	}
	return s.variants.ListByExperimentID(ctx, experimentID)
}

// VariantMetrics returns one variant's aggregate and raw values for metric.
func (s *Service) VariantMetrics(ctx context.Context, variantID string, metric domain.MetricType) (domain.Aggregate, []float64, error) {
	if !metric.Valid() {
		return domain.Aggregate{}, nil, domain.NewInputError(domain.CodeInvalidArgument, "unknown metric type %q", metric)
	}
	if _, err := s.variants.GetByID(ctx, variantID); err != nil {
		return domain.Aggregate{}, nil, err
	}

	agg, err := s.metrics.Aggregate(ctx, variantID, metric)
	if err != nil {
		return domain.Aggregate{}, nil, err
	}
	values, err := s.metrics.AllValues(ctx, variantID, metric)
	if err != nil {
		return domain.Aggregate{}, nil, err
	}
	return agg, values, nil
}

// LatestSnapshot returns the result stored when the experiment completed.
func (s *Service) LatestSnapshot(ctx context.Context, experimentID string) (*ports.ResultSnapshot, error) {
	return s.snapshots.Latest(ctx, experimentID)
}

// export logs exporter failures; telemetry never fails an operation.
func (s *Service) export(what string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Warn().Err(fmt.Errorf("export %s: %w", what, err)).Msg("metrics export failed")
}

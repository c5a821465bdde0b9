package otel

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/ports"
)

const (
	serviceName    = "socialab"
	serviceVersion = "1.0.0"
)

// Exporter exports experiment metrics to an OTEL Collector or stdout.
type Exporter struct {
	provider          *sdkmetric.MeterProvider
	observationsTotal metric.Int64Counter
	resultsTotal      metric.Int64Counter
	confidenceHist    metric.Float64Histogram
	liftHist          metric.Float64Histogram
	transitionsTotal  metric.Int64Counter
}

var _ ports.MetricsExporter = (*Exporter)(nil)

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("OTEL exporter is disabled")
	}

	reader, err := newReader(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newExporter(provider)
}

func newReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case ExporterOTLP, "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("OTEL endpoint not configured")
		}
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}
	return nil, fmt.Errorf("unknown OTEL exporter %q", cfg.Exporter)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	observationsTotal, err := meter.Int64Counter(
		"socialab_observations_total",
		metric.WithDescription("Total metric observations recorded"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating observations counter: %w", err)
	}

	resultsTotal, err := meter.Int64Counter(
		"socialab_results_total",
		metric.WithDescription("Total experiment results computed"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating results counter: %w", err)
	}

	confidenceHist, err := meter.Float64Histogram(
		"socialab_result_confidence",
		metric.WithDescription("Confidence of computed results"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating confidence histogram: %w", err)
	}

	liftHist, err := meter.Float64Histogram(
		"socialab_result_lift_percent",
		metric.WithDescription("Lift of the best candidate over the control"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lift histogram: %w", err)
	}

	transitionsTotal, err := meter.Int64Counter(
		"socialab_experiment_transitions_total",
		metric.WithDescription("Total experiment lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return &Exporter{
		provider:          provider,
		observationsTotal: observationsTotal,
		resultsTotal:      resultsTotal,
		confidenceHist:    confidenceHist,
		liftHist:          liftHist,
		transitionsTotal:  transitionsTotal,
	}, nil
}

func experimentAttrs(exp *domain.Experiment) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("experiment_id", exp.ID),
		attribute.String("platform", exp.Platform),
	}
}

func (e *Exporter) ExportObservation(ctx context.Context, exp *domain.Experiment, obs *domain.MetricObservation) error {
	attrs := append(experimentAttrs(exp), attribute.String("metric", string(obs.Metric)))
	e.observationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

func (e *Exporter) ExportResult(ctx context.Context, exp *domain.Experiment, result *domain.ExperimentResult) error {
	attrs := append(experimentAttrs(exp),
		attribute.String("metric", string(result.PrimaryMetric)),
		attribute.Bool("significant", result.IsSignificant),
	)
	opt := metric.WithAttributes(attrs...)

	e.resultsTotal.Add(ctx, 1, opt)
	e.confidenceHist.Record(ctx, result.Confidence, opt)
	e.liftHist.Record(ctx, result.LiftPercent, opt)
	return nil
}

func (e *Exporter) ExportTransition(ctx context.Context, exp *domain.Experiment, to domain.Status) error {
	attrs := append(experimentAttrs(exp),
		attribute.String("from", string(exp.Status)),
		attribute.String("to", string(to)),
	)
	e.transitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

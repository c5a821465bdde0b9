package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/experiment"
)

func newMetricCmd() *cobra.Command {
	metricCmd := &cobra.Command{
		Use:   "metric",
		Short: "Record variant metrics",
	}
	metricCmd.AddCommand(newMetricRecordCmd())
	metricCmd.AddCommand(newMetricShowCmd())
	return metricCmd
}

func newMetricRecordCmd() *cobra.Command {
	var (
		postRef string
		at      string
	)

	cmd := &cobra.Command{
		Use:   "record <variant-id> <metric> <value>",
		Short: "Record one metric observation for a variant",
		Long: `Record one metric observation for a variant.

Rate metrics (engagement_rate, ctr) are percentages between 0 and 100.

Examples:
  socialab metric record <variant-id> engagement_rate 4.2 --post ig:18012345
  socialab metric record <variant-id> likes 312 --at 2026-03-01T18:00:00Z`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}

			in := experiment.RecordMetricInput{
				VariantID: args[0],
				Metric:    domain.MetricType(args[1]),
				Value:     value,
				PostRef:   postRef,
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at timestamp %q: %w", at, err)
				}
				in.RecordedAt = &t
			}

			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				obs, err := app.Service.RecordMetric(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s=%g for variant %s\n", obs.Metric, obs.Value, obs.VariantID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&postRef, "post", "", "Originating post reference")
	cmd.Flags().StringVar(&at, "at", "", "Observation time (RFC3339), defaults to now")
	return cmd
}

func newMetricShowCmd() *cobra.Command {
	var showValues bool

	cmd := &cobra.Command{
		Use:   "show <variant-id> <metric>",
		Short: "Show the aggregate of one metric for a variant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				agg, values, err := app.Service.VariantMetrics(ctx, args[0], domain.MetricType(args[1]))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Metric:  %s\n", args[1])
				fmt.Fprintf(out, "Samples: %d\n", agg.Count)
				fmt.Fprintf(out, "Mean:    %.4f\n", agg.Mean)
				if showValues {
					for _, v := range values {
						fmt.Fprintf(out, "  %g\n", v)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showValues, "values", false, "Also print every recorded value in time order")
	return cmd
}

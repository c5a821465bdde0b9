package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/experiment"
	"github.com/emiliopalmerini/socialab/internal/util"
)

type experimentCreateOptions struct {
	metric     string
	minSamples int64
	confidence float64
	notes      string
}

func newExperimentCmd() *cobra.Command {
	experimentCmd := &cobra.Command{
		Use:   "experiment",
		Short: "Manage experiments",
		Long:  `Create, start, pause, complete and inspect A/B experiments.`,
	}

	experimentCmd.AddCommand(newExperimentCreateCmd())
	experimentCmd.AddCommand(newExperimentListCmd())
	experimentCmd.AddCommand(newExperimentShowCmd())
	experimentCmd.AddCommand(newExperimentTransitionCmd("start", "Start or resume an experiment",
		`Start a draft experiment or resume a paused one.
The experiment needs at least two variants, one of them the control.`,
		func(s *experiment.Service) transitionFunc { return s.StartExperiment }))
	experimentCmd.AddCommand(newExperimentTransitionCmd("pause", "Pause a running experiment", "",
		func(s *experiment.Service) transitionFunc { return s.PauseExperiment }))
	experimentCmd.AddCommand(newExperimentTransitionCmd("cancel", "Cancel an experiment", "",
		func(s *experiment.Service) transitionFunc { return s.CancelExperiment }))
	experimentCmd.AddCommand(newExperimentResultsCmd())
	experimentCmd.AddCommand(newExperimentCompleteCmd())
	experimentCmd.AddCommand(newExperimentDeleteCmd())
	return experimentCmd
}

func newExperimentCreateCmd() *cobra.Command {
	var opts experimentCreateOptions

	cmd := &cobra.Command{
		Use:   "create <name> <platform>",
		Short: "Create a new experiment",
		Long: `Create a new experiment in draft status.

Examples:
  socialab experiment create "Caption Test" instagram
  socialab experiment create "Hook Test" tiktok --metric shares --confidence 90`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := experiment.CreateExperimentInput{
				Name:          args[0],
				Platform:      args[1],
				PrimaryMetric: domain.MetricType(opts.metric),
				Notes:         opts.notes,
			}
			if cmd.Flags().Changed("min-samples") {
				in.MinSampleSize = &opts.minSamples
			}
			if cmd.Flags().Changed("confidence") {
				in.ConfidenceThreshold = &opts.confidence
			}

			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				exp, err := app.Service.CreateExperiment(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created experiment: %s\nID: %s\n", exp.Name, exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.metric, "metric", "m", string(domain.MetricEngagementRate), "Primary metric")
	cmd.Flags().Int64Var(&opts.minSamples, "min-samples", domain.DefaultMinSampleSize, "Minimum sample size per variant")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", domain.DefaultConfidenceThreshold, "Confidence threshold (0-100)")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "Free-text notes")
	return cmd
}

func newExperimentListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Long:  `List experiments newest first. Without --status only the 20 most recent are shown.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *domain.Status
			if status != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = &s
			}

			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				experiments, err := app.Service.ListExperiments(ctx, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(experiments) == 0 {
					fmt.Fprintln(out, "No experiments found")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tMETRIC\tSTATUS\tCREATED")
				for _, e := range experiments {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.ID, util.Truncate(e.Name, 30), e.Platform, e.PrimaryMetric, e.Status,
						util.FormatDate(&e.CreatedAt))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (draft, running, paused, completed, cancelled)")
	return cmd
}

func newExperimentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an experiment and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				exp, err := app.Service.GetExperiment(ctx, args[0])
				if err != nil {
					return err
				}
				variants, err := app.Service.ListVariants(ctx, exp.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Experiment: %s\n", exp.Name)
				fmt.Fprintf(out, "ID:         %s\n", exp.ID)
				fmt.Fprintf(out, "Platform:   %s\n", exp.Platform)
				fmt.Fprintf(out, "Status:     %s\n", exp.Status)
				fmt.Fprintf(out, "Metric:     %s\n", exp.PrimaryMetric)
				fmt.Fprintf(out, "Threshold:  %.1f%% confidence, %d samples\n", exp.ConfidenceThreshold, exp.MinSampleSize)
				fmt.Fprintf(out, "Created:    %s\n", util.FormatDateTime(&exp.CreatedAt))
				fmt.Fprintf(out, "Started:    %s\n", util.FormatDateTime(exp.StartedAt))
				fmt.Fprintf(out, "Completed:  %s\n", util.FormatDateTime(exp.CompletedAt))
				if exp.Notes != "" {
					fmt.Fprintf(out, "Notes:      %s\n", exp.Notes)
				}

				fmt.Fprintln(out)
				return printVariants(out, variants)
			})
		},
	}
}

type transitionFunc func(ctx context.Context, id string) (*domain.Experiment, error)

func newExperimentTransitionCmd(use, short, long string, pick func(*experiment.Service) transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				exp, err := pick(app.Service)(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s is now %s\n", exp.Name, exp.Status)
				return nil
			})
		},
	}
}

func newExperimentResultsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "results <id>",
		Short: "Show current results of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				result, err := app.Service.GetResults(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newExperimentCompleteCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete an experiment and store its final results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				result, err := app.Service.CompleteExperiment(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newExperimentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an experiment with its variants and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				if err := app.Service.DeleteExperiment(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted experiment: %s\n", args[0])
				return nil
			})
		},
	}
}

func printResult(out io.Writer, result *domain.ExperimentResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(out, strings.TrimRight(result.Summary(), "\n"))
	return err
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "socialab",
		Short: "A/B testing engine for social media content",
		Long: `socialab runs A/B experiments on social media content variants.

Create experiments, attach caption, hashtag or posting-time variants,
record per-variant metrics and get a significance verdict with
recommendations.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newExperimentCmd())
	rootCmd.AddCommand(newVariantCmd())
	rootCmd.AddCommand(newMetricCmd())
	rootCmd.AddCommand(newMigrateCmd())
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

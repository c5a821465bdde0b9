package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/experiment"
	"github.com/emiliopalmerini/socialab/internal/util"
)

func newVariantCmd() *cobra.Command {
	variantCmd := &cobra.Command{
		Use:   "variant",
		Short: "Manage experiment variants",
	}
	variantCmd.AddCommand(newVariantAddCmd())
	variantCmd.AddCommand(newVariantListCmd())
	return variantCmd
}

func newVariantAddCmd() *cobra.Command {
	var (
		variantType string
		content     string
		control     bool
	)

	cmd := &cobra.Command{
		Use:   "add <experiment-id> <name>",
		Short: "Add a variant to an experiment",
		Long: `Add a variant to an experiment. Each experiment has exactly one control.

Examples:
  socialab variant add <id> "Original" --content "Sunset at the pier" --control
  socialab variant add <id> "Question" --content "Ever seen a sunset like this?"
  socialab variant add <id> "Tags" --type hashtag_set --content "#sunset #travel"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := experiment.AddVariantInput{
				ExperimentID: args[0],
				Name:         args[1],
				Type:         domain.VariantType(variantType),
				Content:      content,
				IsControl:    control,
			}
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				v, err := app.Service.AddVariant(ctx, in)
				if err != nil {
					return err
				}
				label := ""
				if v.IsControl {
					label = " (control)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added variant: %s%s\nID: %s\n", v.Name, label, v.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variantType, "type", "t", string(domain.VariantCaption), "Variant type")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Variant content")
	cmd.Flags().BoolVar(&control, "control", false, "Mark as the control variant")
	return cmd
}

func newVariantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <experiment-id>",
		Short: "List variants of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *AppContext) error {
				variants, err := app.Service.ListVariants(ctx, args[0])
				if err != nil {
					return err
				}
				return printVariants(cmd.OutOrStdout(), variants)
			})
		},
	}
}

func printVariants(out io.Writer, variants []*domain.Variant) error {
	if len(variants) == 0 {
		fmt.Fprintln(out, "No variants yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCONTROL\tSAMPLES\tCONTENT")
	for _, v := range variants {
		control := ""
		if v.IsControl {
			control = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Name, v.Type, control, util.FormatNumber(v.SampleCount), util.Truncate(v.Content, 40))
	}
	return w.Flush()
}

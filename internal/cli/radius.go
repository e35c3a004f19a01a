package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
)

func (a *app) radiusCmd() *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "radius",
		Short: "Print the radius schedule and drift of the chained path",
		Long: `Print the search radius for each generation of a week, next to the
radius reached by repeatedly shrinking the previous one. Drift shows where
the two paths disagree after rounding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 0 || to < from {
				return fmt.Errorf("invalid range %d..%d", from, to)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GENERATION\tRADIUS_KM\tCHAINED_KM\tDRIFT_KM")
			for n := from; n <= to; n++ {
				c, err := area.CheckConsistency(n)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\n", c.Generation, c.Authoritative, c.Chained, c.DriftKm)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "first generation")
	cmd.Flags().IntVar(&to, "to", 20, "last generation")
	return cmd
}

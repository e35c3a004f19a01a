package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/inference"
)

func (a *app) inferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer CLUE...",
		Short: "Guess the prize region from clue texts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := inference.LoadGazetteer(a.cfg.GazetteerPath)
			if err != nil {
				return err
			}

			res := inference.NewEngine(g).Infer(args)
			fmt.Fprintf(cmd.OutOrStdout(), "Region:     %s\n", res.Region)
			fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %s\n", res.Confidence)
			fmt.Fprintf(cmd.OutOrStdout(), "Score:      %d\n", res.Score)
			if res.Rule != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Rule:       %s\n", res.Rule)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&a.cfg.GazetteerPath, "gazetteer", a.cfg.GazetteerPath, "gazetteer TOML file (built-in when empty)")
	return cmd
}

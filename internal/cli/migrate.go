package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", a.cfg.DatabaseDriver)
			return nil
		},
	}
}

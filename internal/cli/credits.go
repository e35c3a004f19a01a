package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
)

func (a *app) grantCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "grant OWNER_ID AMOUNT",
		Short: "Credit an owner's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			svc := credit.NewService(db, a.retryPolicy())
			if err := svc.Grant(cmd.Context(), ownerID, amount, credit.TransactionMeta{Description: description}); err != nil {
				return err
			}

			balance, err := svc.GetBalance(cmd.Context(), ownerID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %d credits to %s, balance %d\n", amount, ownerID, balance)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "admin grant", "ledger description")
	return cmd
}

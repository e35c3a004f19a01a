package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/clue"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/cycle"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/validator"
)

type addClueInput struct {
	Tier   string `json:"tier" validate:"required,tier"`
	Body   string `json:"body" validate:"required,max=2000"`
	WeekID int    `json:"week" validate:"gte=0"`
}

func (a *app) clueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clue",
		Short: "Manage the clue catalog",
	}
	cmd.AddCommand(a.clueAddCmd())
	return cmd
}

func (a *app) clueAddCmd() *cobra.Command {
	var in addClueInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a clue to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Body = strings.TrimSpace(in.Body)
			if errs := validator.Validate(&in); errs != nil {
				return fmt.Errorf("invalid clue: %v", errs)
			}

			now := time.Now().UTC()
			if in.WeekID == 0 {
				in.WeekID = cycle.WeekID(now)
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			c := &clue.Clue{
				ID:        uuid.New(),
				Tier:      clue.Tier(in.Tier),
				Body:      in.Body,
				WeekID:    in.WeekID,
				CreatedAt: now,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := clue.NewRepository(db).InsertClue(ctx, c); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s clue %s for week %d (cost %d)\n", c.Tier, c.ID, c.WeekID, c.Tier.Cost())
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Tier, "tier", "", "precise, medium or vague")
	cmd.Flags().StringVar(&in.Body, "body", "", "clue text")
	cmd.Flags().IntVar(&in.WeekID, "week", 0, "week id as YYYYWW (current week when 0)")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/jwt"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [OWNER_ID]",
		Short: "Issue an access token for an owner (new owner when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID := uuid.New()
			if len(args) == 1 {
				var err error
				if ownerID, err = uuid.Parse(args[0]); err != nil {
					return fmt.Errorf("invalid owner id: %w", err)
				}
			}

			token, err := jwt.NewService(a.cfg.JWTSecret, a.cfg.JWTAccessTTL).GenerateAccessToken(ownerID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "owner_id: %s\ntoken: %s\n", ownerID, token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&a.cfg.JWTAccessTTL, "ttl", a.cfg.JWTAccessTTL, "token lifetime")
	return cmd
}

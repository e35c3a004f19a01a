// Package cli implements huntctl, the operator tool for the BuzzHunt engine.
package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/config"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/logger"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

type app struct {
	cfg *config.Config
}

// NewRootCmd builds the command tree. Defaults come from the environment.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:           "huntctl",
		Short:         "Operate the BuzzHunt engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Config{Level: a.cfg.LogLevel, Environment: "development", Output: cmd.ErrOrStderr()})
		},
	}

	root.PersistentFlags().StringVar(&a.cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (postgres, sqlite)")
	root.PersistentFlags().StringVar(&a.cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "database connection string")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", "warn", "log level")

	root.AddCommand(
		a.migrateCmd(),
		a.radiusCmd(),
		a.inferCmd(),
		a.grantCmd(),
		a.clueCmd(),
		a.tokenCmd(),
		a.watchCmd(),
	)
	return root
}

// Execute runs huntctl and exits non-zero on error.
func Execute() {
	if err := NewRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDB connects and migrates the configured store.
func (a *app) openDB() (*sqlx.DB, error) {
	db, err := database.Open(a.cfg.DatabaseDriver, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func (a *app) retryPolicy() retry.Policy {
	p := retry.DefaultPolicy
	if a.cfg.RetryAttempts > 0 {
		p.Attempts = a.cfg.RetryAttempts
	}
	if a.cfg.RetryBaseDelay > 0 {
		p.BaseDelay = a.cfg.RetryBaseDelay
	}
	return p
}

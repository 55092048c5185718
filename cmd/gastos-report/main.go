package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gastos/internal/cli"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
)

var rootCmd = &cobra.Command{
	Use:   "gastos-report",
	Short: "Print ledger reports from the configured backend",
	Long: `gastos-report reads a user's ledger straight from storage and prints
monthly overviews and expense projections. It never writes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("user", "", "user id whose ledger is read (required)")
	rootCmd.PersistentFlags().String("account", "", "restrict the report to one account id")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(projectionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSnapshot reads the --user ledger from the configured backend.
func loadSnapshot(cmd *cobra.Command) (persistence.Snapshot, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return persistence.Snapshot{}, err
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("DATA_BACKEND=memory starts empty; set DATA_BACKEND=sqlite to report on stored data")
	}

	ctx := cmd.Context()
	res, err := cli.InitSource(ctx, logger, cfg)
	if err != nil {
		return persistence.Snapshot{}, err
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("failed to close backend", applog.FieldError, err)
			}
		}()
	}

	user, _ := cmd.Flags().GetString("user")
	snap, err := res.Backend.Load(ctx, user)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("load ledger for %s: %w", user, err)
	}
	return snap, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"powersim/app"
	"powersim/internal"
	"powersim/internal/config"
	"powersim/internal/container"

	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		internal.NewDefaultLogger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, e := newRootCmd(cfg)
	err = rootCmd.ExecuteContext(ctx)
	if closeErr := e.close(context.Background()); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env carries what every subcommand needs: configuration, a logger and the
// dependency container built from them.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   *container.Container
}

// close releases the database whether or not the command succeeded.
func (e *env) close(ctx context.Context) error {
	if e.deps == nil {
		return nil
	}
	return e.deps.Shutdown(ctx)
}

func newRootCmd(cfg *config.Config) (*cobra.Command, *env) {
	e := &env{cfg: cfg}
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "powersim",
		Short: "Monte Carlo power analysis for two-sample t-tests",
		Long: `Estimate the power of an unpaired two-sample t-test by simulation, sweep it
across sample sizes and find the smallest N per group reaching a target power.

Defaults come from POWERSIM_* environment variables (a .env file is read if present).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := internal.ParseLogLevel(cfg.Log.Level)
			if verbose {
				level = slog.LevelDebug
			}
			e.logger = internal.NewLogger(os.Stderr, level, internal.LogFormat(strings.ToLower(cfg.Log.Format)))

			deps, err := container.New(cfg, e.logger)
			if err != nil {
				return err
			}
			e.deps = deps
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every sweep row")

	rootCmd.AddCommand(
		newEstimateCmd(e),
		newSweepCmd(e),
		newScenariosCmd(e),
		newRunsCmd(e),
		newServeCmd(e),
		newMigrateCmd(e),
		newLookupCmd(e),
	)
	return rootCmd, e
}

// service builds a PowerService; withStore opens the database first.
func (e *env) service(ctx context.Context, withStore bool) (*app.PowerService, error) {
	if withStore {
		if err := e.deps.InitWithDatabase(ctx); err != nil {
			return nil, err
		}
	}
	return e.deps.PowerService(), nil
}

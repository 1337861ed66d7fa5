package main

import (
	"context"
	"fmt"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/config"
	"github.com/marmos91/filewallet/pkg/sweep"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove backend objects no record references",
		Long: `Run one orphan sweep over every known domain and exit.

Unlike the periodic sweeper of a running server, a manual sweep deletes
orphans found by this single pass. Do not run it against a backend that is
receiving uploads; use --dry-run to inspect first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			deps, err := buildDeps(ctx, cfg, &config.MetricsResult{})
			if err != nil {
				return err
			}
			defer deps.close()

			sweepCfg := cfg.Sweep
			sweepCfg.Enabled = true
			sweepCfg.Immediate = true
			sweepCfg.DryRun = sweepCfg.DryRun || dryRun

			sweeper, err := sweep.New(deps.store, deps.backends, sweepCfg)
			if err != nil {
				return err
			}

			stats, err := sweeper.RunNow(ctx)
			if stats != nil {
				fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
			}
			if err != nil {
				logger.Error("Sweep finished with errors: %v", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	return cmd
}

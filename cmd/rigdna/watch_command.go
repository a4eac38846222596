package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"rigdna/internal/logging"
	"rigdna/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Re-verify rig documents when they change on disk",
		Long: "Watch observes the given directories (default: the configured data\n" +
			"directory) and re-runs document verification whenever a .dna or .json\n" +
			"file settles after a change. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
				logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "rigdna-*.log"},
				logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "rigs"), Pattern: "*.log"},
			)

			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			dirs := args
			if len(dirs) == 0 {
				dirs = []string{cfg.Paths.DataDir}
			}

			out := cmd.OutOrStdout()
			w, err := watcher.New(cfg, store, logger, func(res watcher.Result) {
				switch {
				case res.Err != nil:
					fmt.Fprintf(out, "FAIL %s: %v\n", res.Path, res.Err)
				case res.Entry != nil:
					fmt.Fprintf(out, "OK   %s (rig %q, archived as %s)\n", res.Path, res.Rig, res.Entry.ID)
				default:
					fmt.Fprintf(out, "OK   %s (rig %q)\n", res.Path, res.Rig)
				}
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Run(runCtx, dirs); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

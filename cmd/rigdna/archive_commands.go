package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived rig revisions",
	}

	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	archiveCmd.AddCommand(newArchivePruneCommand(ctx))
	archiveCmd.AddCommand(newArchiveRestoreCommand(ctx))

	return archiveCmd
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list [rig]",
		Short: "List archived revisions, optionally for one rig",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("archiving is disabled in the configuration")
			}
			defer store.Close()

			rig := ""
			if len(args) == 1 {
				rig = args[0]
			}
			entries, err := store.List(cmd.Context(), rig)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived revisions")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID,
					e.RigName,
					displayTrigger(e.Trigger),
					strconv.Itoa(e.LowConfidence),
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Rig", "Trigger", "Low conf", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newArchivePruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old revisions beyond the retention count per rig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("archiving is disabled in the configuration")
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d revisions\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Revisions to keep per rig (0 uses the configured retention)")
	return cmd
}

func newArchiveRestoreCommand(ctx *commandContext) *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore an archived revision over its source path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("archiving is disabled in the configuration")
			}
			defer store.Close()

			entry, err := store.Restore(cmd.Context(), args[0], targetPath)
			if err != nil {
				return err
			}
			target := targetPath
			if target == "" {
				target = entry.SourcePath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s revision of %q to %s\n",
				entry.CreatedAt.Local().Format("2006-01-02 15:04:05"), entry.RigName, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "target", "t", "", "Restore to this path instead of the recorded source")
	return cmd
}

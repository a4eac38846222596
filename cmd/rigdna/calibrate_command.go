package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rigdna/internal/calibrate"
)

func newCalibrateCommand(ctx *commandContext) *cobra.Command {
	var snapshotPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "calibrate <file>",
		Short: "Reconcile an edited-geometry capture into a rig document",
		Long: "Calibrate derives a new rig document from an edited-geometry capture whose\n" +
			"vertex indices and joint names match the document exactly. The behavior\n" +
			"graph is carried over untouched. The stored revision is archived first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := ctx.calibrationService()
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.CalibrateFile(cmd.Context(), args[0], snapshotPath, outputPath)
			if err != nil {
				var mismatch *calibrate.IndexMismatchError
				if errors.As(err, &mismatch) {
					return fmt.Errorf("%w\nThe capture's topology no longer matches; rebuild through `rigdna overwrite` instead.", err)
				}
				return err
			}
			reportRun(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Edited-geometry capture (JSON)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (defaults to rewriting the rig file)")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func newOverwriteCommand(ctx *commandContext) *cobra.Command {
	var snapshotPath string
	var outputPath string
	var uvTolerance float64

	cmd := &cobra.Command{
		Use:   "overwrite <file>",
		Short: "Rebuild a rig document around a retopologized capture (experimental)",
		Long: "Overwrite resamples every per-vertex table through a UV-space correspondence\n" +
			"so the capture's topology may differ from the document's. The result is\n" +
			"approximate; review the low-confidence vertex report before shipping it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if uvTolerance > 0 {
				cfg.Mapper.UVTolerance = uvTolerance
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Warning: overwrite mode is experimental; results are interpolated approximations.")

			svc, closer, err := ctx.calibrationService()
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.OverwriteFile(cmd.Context(), args[0], snapshotPath, outputPath)
			if err != nil {
				return err
			}
			reportRun(cmd, res)
			if rep := res.Report; rep != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Relocated %d joints through UV anchors\n", rep.RelocatedJoints)
				if n := len(rep.LowConfidence); n > 0 {
					fmt.Fprintf(out, "%d vertices were flagged low confidence; the list is stored in the document metadata\n", n)
				} else {
					fmt.Fprintln(out, "All vertices mapped inside the reference chart")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Edited-geometry capture (JSON)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (defaults to rewriting the rig file)")
	cmd.Flags().Float64Var(&uvTolerance, "uv-tolerance", 0, "UV distance beyond which a match is flagged low confidence")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func reportRun(cmd *cobra.Command, res *calibrate.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", res.OutputPath)
	if res.Entry != nil {
		fmt.Fprintf(out, "Archived prior revision as %s\n", res.Entry.ID)
	}
	if res.LogPath != "" {
		fmt.Fprintf(out, "Operation log: %s\n", res.LogPath)
	}
}

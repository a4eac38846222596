package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rigdna/internal/dna"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a rig document between binary and JSON",
		Long: "Convert reads a document in either format and writes it in the format the\n" +
			"output extension selects: .json for JSON, anything else for binary.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dna.Load(args[0])
			if err != nil {
				return err
			}
			if err := dna.Save(args[1], doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photonix/photo-portal/internal/classifiers/color"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "photonix %s (color model %d)\n", version, color.Version)
		},
	}
}

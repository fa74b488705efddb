package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"photonix/photo-portal/internal/classifiers/color"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <image>",
		Short: "Print the dominant colors of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			results, err := color.NewModel().PredictReader(f)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (score: %0.10f)\n", r.Name, r.Score)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/matching"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/normalizers"
)

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <text> <text>",
		Short: "Show how two message texts compare",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scorer := matching.NewScorer()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "normalized a: %q\n", normalizers.Message(args[0]))
			fmt.Fprintf(out, "normalized b: %q\n", normalizers.Message(args[1]))
			fmt.Fprintf(out, "similarity:   %.4f\n", scorer.Compare(args[0], args[1]))
			fmt.Fprintf(out, "levenshtein:  %.4f (distance %d)\n",
				scorer.Levenshtein(args[0], args[1]),
				scorer.LevenshteinDistance(normalizers.Message(args[0]), normalizers.Message(args[1])))
			return nil
		},
	}
}

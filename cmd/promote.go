package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/employer-unify/internal/unify/resolve"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <system>",
	Short: "Create canonical employers from unmatched records",
	Long:  "Creates a canonical employer for every source record of a system that has no active match, recording the backing ledger edge. Run after 'match' so only genuinely new employers are created.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		summary, err := resolve.Promote(ctx, pool, args[0])
		if summary != nil {
			fmt.Printf("Run %s\n  promoted: %d\n", summary.RunID, summary.Promoted)
		}
		if err != nil {
			return eris.Wrapf(err, "promote %s", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}

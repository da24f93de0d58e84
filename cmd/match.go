package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/employer-unify/internal/unify"
	"github.com/sells-group/employer-unify/internal/unify/resolve"
)

var (
	matchForce  bool
	matchStates []string
)

var matchCmd = &cobra.Command{
	Use:   "match <system>",
	Short: "Match a source system against canonical employers",
	Long:  "Runs the tiered matcher over one source system's records, sharded by state. Accepted edges are written to the match ledger; each shard commits independently, so a cancelled run resumes where it left off.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		engine := resolve.NewEngine(pool, unify.NewLedger(pool), cfg.Match)
		summary, err := engine.MatchSystem(ctx, args[0], resolve.RunOpts{
			Force:  matchForce,
			States: matchStates,
		})
		if summary != nil {
			printRunSummary(summary)
		}
		if err != nil {
			return eris.Wrapf(err, "match %s", args[0])
		}
		return nil
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find duplicate canonical employers",
	Long:  "Matches the canonical employer table against itself, recording duplicate-pair edges for clustering. Each employer is compared only against lower-ID candidates so every pair yields at most one edge.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		engine := resolve.NewEngine(pool, unify.NewLedger(pool), cfg.Match)
		summary, err := engine.MatchInternal(ctx, resolve.RunOpts{
			Force:  matchForce,
			States: matchStates,
		})
		if summary != nil {
			printRunSummary(summary)
		}
		if err != nil {
			return eris.Wrap(err, "dedupe")
		}
		return nil
	},
}

func printRunSummary(s *resolve.RunSummary) {
	fmt.Printf("Run %s\n", s.RunID)
	fmt.Printf("  matched:   %d\n", s.Matched)
	fmt.Printf("  skipped:   %d\n", s.Skipped)
	fmt.Printf("  unmatched: %d\n", s.Unmatched)
	fmt.Printf("  ambiguous: %d (flagged for review)\n", s.Ambiguous)
}

func init() {
	for _, c := range []*cobra.Command{matchCmd, dedupeCmd} {
		c.Flags().BoolVar(&matchForce, "force", false, "re-evaluate records that already have an active edge")
		c.Flags().StringSliceVar(&matchStates, "states", nil, "restrict the run to specific state shards")
	}
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(dedupeCmd)
}

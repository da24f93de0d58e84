package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/employer-unify/internal/model"
	"github.com/sells-group/employer-unify/internal/unify"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Query the unified match ledger",
}

var ledgerActiveCmd = &cobra.Command{
	Use:   "active <system> <source-id>",
	Short: "Show the currently active target for one source record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		edge, err := unify.NewLedger(pool).ActiveTarget(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "ledger active")
		}
		if edge == nil {
			fmt.Printf("No active match for %s/%s\n", args[0], args[1])
			return nil
		}

		formatEdges(os.Stdout, []model.MatchEdge{*edge})
		return nil
	},
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history <system> <source-id>",
	Short: "Show the full match history for one source record",
	Long:  "Lists every ledger entry for the record, newest first, including superseded decisions. History is never deleted.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		edges, err := unify.NewLedger(pool).History(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "ledger history")
		}
		if len(edges) == 0 {
			fmt.Printf("No ledger entries for %s/%s\n", args[0], args[1])
			return nil
		}

		formatEdges(os.Stdout, edges)
		return nil
	},
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the per-method distribution of active edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		stats, err := unify.NewLedger(pool).Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "ledger stats")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "METHOD\tTIER\tCOUNT\tHIGH\tMEDIUM\tLOW\tAVG SCORE")
		for _, s := range stats {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.3f\n",
				s.Method, s.Tier, s.Count, s.High, s.Medium, s.Low, s.AvgScore)
		}
		_ = w.Flush()
		return nil
	},
}

var ledgerReviewCmd = &cobra.Command{
	Use:   "review [system]",
	Short: "List ambiguous matches flagged for manual review",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		system := ""
		if len(args) == 1 {
			system = args[0]
		}

		edges, err := unify.NewLedger(pool).FlaggedForReview(ctx, system)
		if err != nil {
			return eris.Wrap(err, "ledger review")
		}
		if len(edges) == 0 {
			fmt.Println("No matches flagged for review")
			return nil
		}

		formatEdges(os.Stdout, edges)
		return nil
	},
}

var ledgerBackingCmd = &cobra.Command{
	Use:   "backing <employer-id>",
	Short: "List the source records backing one canonical employer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "ledger backing: bad employer id %q", args[0])
		}

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		edges, err := unify.NewLedger(pool).BackingRecords(ctx, id)
		if err != nil {
			return eris.Wrap(err, "ledger backing")
		}
		if len(edges) == 0 {
			fmt.Printf("No source records back employer %d\n", id)
			return nil
		}

		formatEdges(os.Stdout, edges)
		return nil
	},
}

// formatEdges writes a tabular representation of ledger entries to w.
func formatEdges(out io.Writer, edges []model.MatchEdge) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SYSTEM\tSOURCE ID\tTARGET\tMETHOD\tBAND\tSCORE\tSTATUS\tREVIEW\tWHEN")
	for _, e := range edges {
		review := ""
		if e.NeedsReview {
			review = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.3f\t%s\t%s\t%s\n",
			e.SourceSystem, e.SourceID, e.TargetID, e.Method, e.Band, e.Score,
			e.Status, review, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func init() {
	ledgerCmd.AddCommand(ledgerActiveCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerReviewCmd)
	ledgerCmd.AddCommand(ledgerBackingCmd)
	rootCmd.AddCommand(ledgerCmd)
}

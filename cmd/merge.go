package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/employer-unify/internal/unify"
	"github.com/sells-group/employer-unify/internal/unify/cluster"
	"github.com/sells-group/employer-unify/internal/unify/merge"
)

var mergeDryRun bool

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge clustered duplicate employers",
	Long:  "For each canonical group, selects a keeper and merges the other members into it, migrating every dependent-table reference. Always run with --dry-run first; the preview reports exactly what would change with zero writes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := unifyPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		builder := cluster.NewBuilder(pool, unify.NewLedger(pool))
		clusters, err := builder.Build(ctx)
		if err != nil {
			return eris.Wrap(err, "merge")
		}
		if len(clusters) == 0 {
			fmt.Println("No clusters to merge")
			return nil
		}

		exec := merge.NewExecutor(pool, cfg.Merge)

		if mergeDryRun {
			report, err := exec.DryRun(ctx, clusters)
			if err != nil {
				return eris.Wrap(err, "merge dry-run")
			}
			printDryRun(report)
			return nil
		}

		summary, err := exec.Run(ctx, clusters)
		if err != nil {
			return eris.Wrap(err, "merge")
		}
		printMergeSummary(summary)
		return nil
	},
}

func printDryRun(r *merge.DryRunReport) {
	fmt.Printf("Dry run: %d clusters, %d pairs\n", r.Clusters, len(r.Pairs))
	for _, p := range r.Pairs {
		fmt.Printf("  keep %d (%s) <- delete %d (%s)\n", p.KeptID, p.KeptName, p.DeletedID, p.DeletedName)
		for table, moved := range p.TableCounts {
			if moved.Updated == 0 && moved.ConflictsDeleted == 0 {
				continue
			}
			fmt.Printf("    %s: %d updated, %d conflicts\n", table, moved.Updated, moved.ConflictsDeleted)
		}
	}
	fmt.Printf("Would update %d rows, resolve %d conflicts. No changes made.\n", r.Updated, r.Conflicts)
}

func printMergeSummary(s *merge.BatchSummary) {
	fmt.Printf("Merged %d pairs across %d clusters\n", s.Merged, s.Clusters)
	fmt.Printf("  rows updated:       %d\n", s.Updated)
	fmt.Printf("  conflicts resolved: %d\n", s.Conflicts)
	if len(s.Failures) > 0 {
		fmt.Printf("  FAILED pairs: %d\n", len(s.Failures))
		for _, f := range s.Failures {
			fmt.Printf("    keep %d / delete %d: %s\n", f.KeptID, f.DeletedID, f.Error)
		}
	}
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "report what would change without writing")
	rootCmd.AddCommand(mergeCmd)
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/unify"
	"github.com/sells-group/employer-unify/internal/unify/cluster"
)

var groupsPrint bool

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Rebuild canonical groups from ledger edges",
	Long:  "Recomputes connected components of duplicate employers from the active internal-duplicate edges and replaces labor_data.canonical_groups. Groups are fully derived and safe to regenerate at any time.",
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
			return eris.Wrap(err, "groups")
		}

		if groupsPrint {
			for _, c := range clusters {
				fmt.Printf("%s  members=%v  size=%d  multi_region=%v\n",
					c.CanonicalName, c.Members, c.ConsolidatedSize, c.MultiRegion)
			}
		}

		if err := builder.RebuildGroups(ctx, clusters); err != nil {
			return eris.Wrap(err, "groups")
		}

		zap.L().Info("canonical groups rebuilt", zap.Int("groups", len(clusters)))
		fmt.Printf("Rebuilt %d canonical groups\n", len(clusters))
		return nil
	},
}

func init() {
	groupsCmd.Flags().BoolVar(&groupsPrint, "print", false, "print each group before persisting")
	rootCmd.AddCommand(groupsCmd)
}

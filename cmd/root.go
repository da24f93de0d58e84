package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "unify",
	Short: "Employer entity-resolution pipeline",
	Long:  "Ingests employer records from heterogeneous government and commercial sources, resolves them against a canonical employer table through tiered matching, clusters duplicates, and merges them with full reference migration.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

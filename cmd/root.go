package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "deso-cli",
	Short: "Socioeconomic analysis of Swedish DeSO areas",
	Long:  "Fetches education, economic standard and unemployment statistics from SCB, merges them into a composite socioeconomic index and classifies every DeSO area into one of five area types.",
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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "semitone-cli",
	Short: "Marks adjacent apartments with semitone sub-zone identifiers",
	Long: "Groups apartment rooms of a building model into flats per level, section and flat type, " +
		"and writes the semitone sub-zone identifier to alternating pairs of adjacent flats so they " +
		"can be colored differently on plans.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return cfg.Validate()
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

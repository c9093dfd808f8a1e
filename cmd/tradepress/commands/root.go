package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	scoringConfig string
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradepress",
	Short: "TradePress - earnings whisper scoring engine",
	Long: `TradePress Unified CLI

Technical directives, composite earnings-whisper ranking and the
provider capability matrix behind one binary.

Usage:
  go run ./cmd/tradepress [command]

Examples:
  go run ./cmd/tradepress api
  go run ./cmd/tradepress directives
  go run ./cmd/tradepress evaluate cci --input snapshot.json
  go run ./cmd/tradepress rank --input candidates.json
  go run ./cmd/tradepress capabilities platforms short_interest`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scoringConfig, "config", "", "directive/scoring YAML (default: $SCORING_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

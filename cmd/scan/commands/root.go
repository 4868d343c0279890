package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	dataDir    string
	dataFormat string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "patternscan",
	Short: "A-share 일봉 패턴 스캐너",
	Long: `patternscan Unified CLI

일봉 아카이브 전체에 패턴 분류기를 적용하여 매수 후보를 찾습니다.
전략: ma5, volume_breakout, breakout_pullback

Usage:
  go run ./cmd/scan [command]

Examples:
  go run ./cmd/scan scan --strat ma5
  go run ./cmd/scan analyze 600000 --strat breakout_pullback
  go run ./cmd/scan concepts sync
  go run ./cmd/scan api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "bar archive directory (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&dataFormat, "data-format", "", "csv|parquet|postgres (overrides DATA_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ifvg/config"
	"github.com/rustyeddy/ifvg/internal/logx"
)

var (
	cfgFile    string
	logLevel   string
	logConsole bool
)

var rootCmd = &cobra.Command{
	Use:   "ifvg",
	Short: "Fair value gap and inversion scanner",
	Long: `ifvg scans OHLC bar series for fair value gaps, tracks which of them
are later inverted by price, and flags entries where an inversion closes
beyond the most recent session range.

It provides tools for:
  - Scanning CSV or Parquet bar files, one or many at a time
  - Resuming a scan as new bars arrive
  - Exporting annotated bars to CSV, JSON or Parquet
  - Keeping a journal of runs and inversions in SQLite or CSV
  - Serving scans over HTTP with Prometheus metrics`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.Setup(logLevel, logConsole)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file, YAML or JSON (default settings when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "console", true, "human readable logs instead of JSON")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

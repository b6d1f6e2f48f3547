// Package main is the calcfields CLI: offline conversion of workbook XML to
// the calculated field CSV report.
package main

import (
	"log/slog"
	"os"

	"github.com/JonMunkholm/calcfields/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "calcfields",
	Short: "Export calculated fields and parameters from workbook XML",
	Long: `calcfields reads Tableau-style workbook metadata (.twb, .tds or plain XML)
and lists every calculated field and parameter with internal field names
replaced by their captions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		level, _ := cmd.Flags().GetString("log-level")
		slog.SetDefault(logging.New(os.Stderr, level, "text"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

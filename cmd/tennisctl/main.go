// tennisctl is a command-line companion to the Tennis Tracker API.
//
// Usage:
//
//	tennisctl formats                 - List the supported match formats
//	tennisctl replay <script.yaml>    - Score a scripted match offline and print the board
//
// Global flags:
//
//	--log-level <level>   - debug, info, warn or error (default: warn)
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagLogLevel string

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "tennisctl"})
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tennisctl",
	Short: "Tennis Tracker tools",
	Long: `tennisctl lists the match formats the scoring engine supports and replays
scripted matches through the engine without a server or database.

Examples:
  tennisctl formats
  tennisctl replay testdata/fast4.yaml --stats`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(flagLogLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q", flagLogLevel)
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(replayCmd)
}

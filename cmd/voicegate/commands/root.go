package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "voicegate",
	Short: "Voice-based speaker verification service",
	Long: `voicegate - challenge-response speaker verification.

The server walks a caller through three spoken challenge sentences,
screens each sample for AI-generated voice, checks the transcript
against the expected sentence, and stores every accepted sample
encrypted under a single-use key. Verified samples build a per-speaker
enrollment baseline that later voice signatures are checked against.

Examples:
  # Run the server
  voicegate serve --config /etc/voicegate/config.yaml

  # Draw a set of challenge prompts
  voicegate prompts draw

  # Walk through a verification session against a running server
  voicegate verify --server http://localhost:8080 --principal alice sample1.wav sample2.wav sample3.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// IsVerbose reports whether --verbose was set.
func IsVerbose() bool {
	return verbose
}

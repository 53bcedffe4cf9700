// Package main is the entry point for the voicegate CLI.
//
// Usage:
//
//	voicegate [flags] <command> [args]
//
// Commands:
//
//	serve      - Run the verification server
//	prompts    - Inspect or draw challenge prompts
//	verify     - Run a verification session against a server
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/voicepay/voicegate/cmd/voicegate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

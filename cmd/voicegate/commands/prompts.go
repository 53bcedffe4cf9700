package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicepay/voicegate/pkg/challenge"
	"github.com/voicepay/voicegate/pkg/session"
)

var flagPromptsFile string

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect or draw challenge prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the challenge catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		for i, p := range catalog.Prompts() {
			fmt.Printf("%2d. %s\n", i+1, p)
		}
		return nil
	},
}

var promptsDrawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw a random challenge set",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		prompts, err := catalog.Draw(session.NumPrompts)
		if err != nil {
			return err
		}
		for i, p := range prompts {
			fmt.Printf("%d. %s\n", i+1, p)
		}
		return nil
	},
}

func loadCatalog() (*challenge.Catalog, error) {
	if flagPromptsFile != "" {
		return challenge.Load(flagPromptsFile)
	}
	return challenge.Default(), nil
}

func init() {
	promptsCmd.PersistentFlags().StringVarP(&flagPromptsFile, "file", "f", "", "prompt catalog file (one sentence per line)")
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsDrawCmd)
	rootCmd.AddCommand(promptsCmd)
}

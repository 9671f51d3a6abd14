package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about your SLOs",
	Long: `Ask classifies the question, resolves its time window, queries the
required data backends, and prints the aggregated result as JSON.

Examples:
  slopilot ask "what's the current health of my application?"
  slopilot ask "is the payments service burning error budget?"
  slopilot ask "what happened yesterday vs last week?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.cleanup()

		resp := a.orch.Process(cmd.Context(), question)

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render response: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

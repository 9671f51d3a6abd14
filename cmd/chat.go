package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive SLO question session",
	Long: `Chat starts a read-eval-print loop. Each line is processed as a
question; control words manage the session:

  help         show the control words
  history      list recent questions
  export [f]   write the last result to a JSON file
  exit / quit  leave the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.cleanup()

		fmt.Println("slopilot chat - ask about your SLOs (type 'help' for commands)")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("slo> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			switch firstWord(line) {
			case "exit", "quit":
				fmt.Println("bye")
				return nil
			case "help":
				printChatHelp()
			case "history":
				showHistory(cmd.Context(), a)
			case "export":
				exportLast(cmd.Context(), a, line)
			default:
				resp := a.orch.Process(cmd.Context(), line)
				out, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to render response: %v\n", err)
					continue
				}
				fmt.Println(string(out))
			}
		}
	},
}

func firstWord(line string) string {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func printChatHelp() {
	fmt.Println(`Control words:
  help         show this help
  history      list recent questions
  export [f]   write the last result to a JSON file (default slo_export_<ts>.json)
  exit / quit  leave the session

Anything else is treated as a question.`)
}

func showHistory(ctx context.Context, a *app) {
	if a.hist == nil {
		fmt.Println("history is disabled")
		return
	}

	entries, err := a.hist.Recent(ctx, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read history: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("no history yet")
		return
	}

	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		fmt.Printf("%s  [%s]  %s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), status, e.PrimaryIntent, e.Query)
	}
}

func exportLast(ctx context.Context, a *app, line string) {
	if a.hist == nil {
		fmt.Println("history is disabled, nothing to export")
		return
	}

	last, err := a.hist.Last(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read history: %v\n", err)
		return
	}
	if last == nil {
		fmt.Println("nothing to export yet")
		return
	}

	path := ""
	if fields := strings.Fields(line); len(fields) > 1 {
		path = fields[1]
	}
	if path == "" {
		path = fmt.Sprintf("slo_export_%s.json", time.Now().UTC().Format("20060102T150405"))
	}

	if err := os.WriteFile(path, []byte(last.ResponseJSON), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write export: %v\n", err)
		return
	}
	fmt.Println("exported last result to", path)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const mcpServerVersion = "1.0.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server over stdio",
	Long: `Mcp exposes the question pipeline as a Model Context Protocol server
speaking JSON-RPC over stdin/stdout, so agent hosts can ask SLO questions as
a tool call. All logging goes to stderr; stdout carries only the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.cleanup()

		s := server.NewMCPServer("slopilot", mcpServerVersion)

		sloQueryTool := mcp.NewTool("slo_query",
			mcp.WithDescription("Answer a natural-language question about service-level objectives: "+
				"current health, error budget burn, behavior patterns, seasonality, and recurring incidents. "+
				"Returns the aggregated result as JSON."),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question to answer, e.g. \"what's burning error budget this week?\""),
			),
		)
		s.AddTool(sloQueryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			question, err := request.RequireString("question")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp := a.orch.Process(ctx, question)
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to render response: %w", err)
			}
			return mcp.NewToolResultText(string(out)), nil
		})

		a.log.Info("MCP server listening on stdio")
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

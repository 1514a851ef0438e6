package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/manualqa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask_manuals and search_manuals tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := startup(ctx)
		if err != nil {
			return describeStartupError(err)
		}
		defer a.Close()

		if _, err := a.prepareIndex(ctx, false); err != nil {
			return describeStartupError(err)
		}

		engine, err := a.newEngine(ctx)
		if err != nil {
			return err
		}
		sessions, closeSessions, err := a.openSessions()
		if err != nil {
			return err
		}
		defer closeSessions()
		engine.WithRecorder(sessions.Recorder())

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "manualqa MCP server started on stdio (chunks=%d)\n", a.index.Count())

		srv := mcpserver.NewServer(engine, sessions, a.index)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

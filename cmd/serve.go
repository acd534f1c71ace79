package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	mcpserver "github.com/lukman83/pricehound/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	Long:  "Expose product resolution as MCP tools over stdio, for use from agent tooling.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	initMarketplaces()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting PriceHound MCP server on stdio...")

	if err := mcpserver.Serve(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
	return nil
}

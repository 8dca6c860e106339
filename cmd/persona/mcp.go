package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/personakit/persona/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the engine as an MCP server on stdio",
	Long:  `Starts an MCP server so agent hosts can define personas and drive conversations as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		return mcpadapter.NewServer(engine).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

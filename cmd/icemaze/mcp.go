package main

import (
	"github.com/spf13/cobra"

	"github.com/copyleftdev/icemaze/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the solve_maze and evolve_walls tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("serving MCP over stdio")
		return mcp.NewTools(cfg.OptimizerDefaults(), zapLogger(), nil).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

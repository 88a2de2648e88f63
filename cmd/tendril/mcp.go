package main

import (
	"log"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <flow.yaml>",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Serves the containers of a flow file as MCP tools over stdio:
list_containers, evaluate and get_graph.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		session, err := cli.OpenSession(args[0], cfg, logger)
		if err != nil {
			return err
		}
		defer session.Close()

		// Stdout carries JSON-RPC; keep every log on stderr.
		log.SetOutput(os.Stderr)
		logger.Info("starting MCP server (stdio)", "flow", args[0])
		return mcp.NewServer(session.Engine, logger).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

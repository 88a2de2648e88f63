package main

import (
	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <flow.yaml>",
	Short: "Export a container graph",
	Long: `Outputs the nodes reachable from a container as a Mermaid diagram (graph TD),
as JSON, or as a node table (markdown, or pretty for the terminal).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, _ := cmd.Flags().GetString("container")
		format, _ := cmd.Flags().GetString("format")
		return cli.Inspect(args[0], container, format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("container", "c", "", "Container to export (default: the only container, or main)")
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid, json, markdown or pretty")
}

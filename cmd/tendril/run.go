package main

import (
	"errors"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <flow.yaml>",
	Short: "Evaluate a container of a flow file",
	Long: `Evaluates one container with the given input parameters and prints its result.
Parameters come from --params (a JSON object) and repeated --param key=value flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := cli.RunOptions{FlowPath: args[0]}
		opts.Container, _ = cmd.Flags().GetString("container")
		opts.ParamsJSON, _ = cmd.Flags().GetString("params")
		opts.Params, _ = cmd.Flags().GetStringArray("param")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Trace, _ = cmd.Flags().GetBool("trace")
		if !cmd.Flags().Changed("json") && !term.IsTerminal(int(os.Stdout.Fd())) {
			opts.JSON = true
		}

		if store, _ := cmd.Flags().GetString("store"); store != "" {
			cfg.Store.Backend = store
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		err = cli.Run(cmd.Context(), opts, cfg, logger, cmd.OutOrStdout())
		if errors.Is(err, cli.ErrFlowFailed) {
			// The result already carries the error; only the exit code is left.
			os.Exit(2)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("container", "c", "", "Container to evaluate (default: the only container, or main)")
	runCmd.Flags().String("params", "", "Input parameters as a JSON object")
	runCmd.Flags().StringArrayP("param", "p", nil, "Input parameter as key=value (repeatable)")
	runCmd.Flags().Bool("json", false, "Print the result as JSON (default when stdout is not a terminal)")
	runCmd.Flags().Bool("trace", false, "Print a Mermaid graph with the visited nodes highlighted")
	runCmd.Flags().String("store", "", "Store backend: memory, file or redis; overrides the config file")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-edge-shell/internal/commands"
	"github.com/randomizedcoder/go-edge-shell/internal/config"
	"github.com/randomizedcoder/go-edge-shell/internal/logging"
	"github.com/randomizedcoder/go-edge-shell/internal/orchestrator"
	"github.com/randomizedcoder/go-edge-shell/internal/preflight"
)

func newPrintCmdCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print-cmd",
		Short: "Print the edge runtime command line and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := orchestrator.New(opts.cfg, logging.Discard(), orchestrator.Options{Version: opts.version})
			runner, err := orch.App().Runner()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "# Edge runtime command that would be run:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, runner.CommandString())
			return nil
		},
	}
}

func newGreetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "greet <name>",
		Short: "Print a greeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), commands.Greet(args[0]))
			return nil
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "edge-shell %s\n", opts.version)
			return nil
		},
	}
}

func newPreflightCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check that the edge runtime and its resources are in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.ApplyCheckMode(opts.cfg)
			orch := orchestrator.New(opts.cfg, logging.Discard(), orchestrator.Options{Version: opts.version})

			checks := orch.PreflightOptions()
			checks.ProbeVersion = true
			result := preflight.RunAll(cmd.Context(), checks)
			preflight.PrintResults(cmd.OutOrStdout(), result)
			return result.Err()
		},
	}
}

// Package cli implements the edge-shell command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-edge-shell/internal/config"
)

// rootOptions is shared by every subcommand.
type rootOptions struct {
	cfg     *config.Config
	version string
}

// NewRootCmd builds the command tree. Running it without a subcommand is
// the same as "run".
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{cfg: config.DefaultConfig(), version: version}

	root := &cobra.Command{
		Use:     "edge-shell",
		Short:   "Terminal shell that supervises an edge runtime sidecar",
		Version: version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	config.RegisterFlags(root.PersistentFlags(), opts.cfg)

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newPrintCmdCmd(opts))
	root.AddCommand(newGreetCmd())
	root.AddCommand(newVersionCmd(opts))
	root.AddCommand(newPreflightCmd(opts))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// load overlays the config file, if any, and validates the result.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.cfg.ConfigFile != "" {
		if err := config.LoadFile(o.cfg.ConfigFile, o.cfg, cmd.Flags()); err != nil {
			return err
		}
	}
	if err := config.Validate(o.cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

// Execute runs the CLI entrypoint and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

package cli

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-edge-shell/internal/config"
	"github.com/randomizedcoder/go-edge-shell/internal/logging"
	"github.com/randomizedcoder/go-edge-shell/internal/orchestrator"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the shell and serve the command API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}
}

func runShell(cmd *cobra.Command, opts *rootOptions) error {
	cfg := opts.cfg

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logging.SetDefault(logger)

	logger.Info("starting",
		"version", opts.version,
		"config_file", cfg.ConfigFile,
		"resource_dir", cfg.ResourceDir,
		"sidecar", sidecarLabel(cfg),
		"metrics_addr", cfg.MetricsAddr,
		"tui", cfg.TUI,
	)

	out := cmd.OutOrStdout()
	if !cfg.TUI {
		printBanner(out, cfg, opts.version)
	}

	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version:        opts.version,
		Out:            out,
		ProgramOptions: []tea.ProgramOption{tea.WithAltScreen()},
	})
	if err := orch.Run(cmd.Context()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		return err
	}
	return nil
}

// newLogger picks the log destination. While the TUI owns the terminal, logs
// go to --log-file or nowhere.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	switch {
	case cfg.LogFile != "":
		return logging.NewFileLogger(cfg.LogFile, cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	case cfg.TUI:
		return logging.Discard(), nil, nil
	default:
		return logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose), nil, nil
	}
}

func sidecarLabel(cfg *config.Config) string {
	if cfg.SidecarPath != "" {
		return cfg.SidecarPath
	}
	return cfg.SidecarName
}

// printBanner prints the startup banner for headless runs.
func printBanner(w io.Writer, cfg *config.Config, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║  edge-shell %-54s║\n", version)
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	resourceDir := cfg.ResourceDir
	if resourceDir == "" {
		resourceDir = "(next to executable)"
	}
	fmt.Fprintf(w, "  Resources:   %s/%s\n", resourceDir, cfg.ResourceName)
	fmt.Fprintf(w, "  Sidecar:     %s\n", sidecarLabel(cfg))
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(w, "  API:         http://%s\n", cfg.MetricsAddr)
	}
	if cfg.Autostart {
		fmt.Fprintln(w, "  Autostart:   yes")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop.")
	fmt.Fprintln(w)
}

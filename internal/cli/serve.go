package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/config"
	"github.com/rhesis-ai/traceplay/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr       string
	TraceDir   string
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graphs and playback frames to the dashboard renderer",
		Long: `Run the dashboard backend.

Loads every trace file in the trace directory once at startup and serves
the extracted graphs over HTTP plus live playback frames over websockets.
Flags override the corresponding config file fields.

Exit codes:
  0 - Clean shutdown
  2 - Command error (bad config, trace directory unreadable, bind failure)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.TraceDir, "trace-dir", "", "directory of trace files (overrides config)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runServe(opts *ServeOptions) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	reg, err := server.LoadRegistry(cfg.Server.TraceDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load traces", err)
	}

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"trace_dir", cfg.Server.TraceDir,
		"traces", reg.Len())

	srv := server.NewServer(cfg, reg)
	if err := srv.Start(); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("server on %s", cfg.Server.Addr), err)
	}
	return nil
}

// loadServeConfig merges defaults, config file, and flag overrides in
// that order.
func loadServeConfig(opts *ServeOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.TraceDir != "" {
		cfg.Server.TraceDir = opts.TraceDir
	}
	return cfg, cfg.Validate()
}

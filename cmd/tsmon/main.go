// Package main is the CLI entry point for tsmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/config"
	"github.com/eliteGoblin/focusd/tsmon/internal/daemon"
	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/infra"
	"github.com/eliteGoblin/focusd/tsmon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tsmon",
	Short: "Tailscale connection monitor",
	Long: `tsmon watches the local Tailscale client by polling
"tailscale status --json --self" and shows whether the device is connected,
its hostname, the tailnet it belongs to, and the active exit node.

It can also bring the connection up or down. After an action the next poll
is what reports the new state.`,
	Version:      Version,
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query status once and print it",
	Long:  `Runs a single status query. Use --json or --yaml for machine-readable output.`,
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll status continuously",
	Long: `Polls status every 10 seconds and prints each change.
With --interactive, type "up", "down" or "toggle" and press enter to run an action.`,
	RunE: runWatch,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Connect (tailscale up)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, domain.ActionConnect)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Disconnect (tailscale down)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, domain.ActionDisconnect)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath      string
	logLevel        string
	colorMode       string
	jsonOutput      bool
	yamlOutput      bool
	showDetail      bool
	interactive     bool
	metricsTextfile string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.tsmon/config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "", "Override output.color (auto, always, never)")

	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the snapshot as JSON")
	statusCmd.Flags().BoolVar(&yamlOutput, "yaml", false, "Output the snapshot as YAML")
	statusCmd.Flags().BoolVar(&showDetail, "detail", false, "Also print the raw status payload")
	statusCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	watchCmd.Flags().BoolVar(&interactive, "interactive", false, "Read up/down/toggle commands from stdin")
	watchCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Override metrics.textfile")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig applies flag overrides on top of file and environment settings.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = infra.DefaultPaths().ExistingConfigFile()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if colorMode != "" {
		cfg.Output.Color = colorMode
	}
	if metricsTextfile != "" {
		cfg.Metrics.Textfile = metricsTextfile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createLogger logs to log.file, or the per-user default file when unset.
// Falls back to stderr if the file cannot be opened.
func createLogger(cfg config.LogConfig) *zap.Logger {
	if cfg.File == "" {
		cfg.File = infra.DefaultPaths().LogFile
	}

	logger, err := infra.NewLogger(cfg)
	if err == nil {
		return logger
	}

	cfg.File = ""
	logger, stderrErr := infra.NewLogger(cfg)
	if stderrErr != nil {
		return zap.NewNop()
	}
	logger.Warn("file logging unavailable, using stderr", zap.Error(err))
	return logger
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func newInvoker(logger *zap.Logger) domain.ProcessInvoker {
	return infra.NewExecInvoker(infra.NewProcessManager(), logger.Named("invoker"))
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	poller := daemon.NewStatusPoller(
		daemon.DefaultPollerConfig(),
		newInvoker(logger),
		usecase.NewReconciler(logger),
		logger.Named("poller"),
	)
	snap := poller.PollOnce(cmd.Context())

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeJSON(out, snap)
	case yamlOutput:
		return writeYAML(out, snap)
	}

	r := newRenderer(out, cfg.Output.Color)
	fmt.Fprintln(out, r.Snapshot(snap))
	if showDetail || !snap.Connected {
		fmt.Fprintln(out)
		fmt.Fprintln(out, r.Detail(snap))
	}
	return nil
}

func runAction(cmd *cobra.Command, action domain.Action) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext(logger)
	defer cancel()

	executor := daemon.NewActionExecutor(daemon.DefaultExecutorConfig(), newInvoker(logger), logger.Named("executor"))
	results, err := executor.Execute(ctx, action)
	if err != nil {
		return err
	}

	var result domain.ActionResult
	select {
	case result = <-results:
	case <-ctx.Done():
		executor.Shutdown(daemon.DefaultMonitorConfig().ShutdownGrace)
		result = <-results
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, newRenderer(out, cfg.Output.Color).ActionResult(result))
	if !result.Success {
		return errors.New("action failed")
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if jsonOutput {
		_ = writeJSON(out, map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		return
	}
	fmt.Fprintf(out, "tsmon %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
}

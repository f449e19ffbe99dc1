package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/tsmon/internal/daemon"
	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/metrics"
	"github.com/eliteGoblin/focusd/tsmon/internal/usecase"
)

// errQuit ends watch from the interactive prompt.
var errQuit = errors.New("quit")

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	monitor := daemon.NewMonitor(
		daemon.DefaultMonitorConfig(),
		newInvoker(logger),
		usecase.NewReconciler(logger),
		logger.Named("monitor"),
	)

	out := cmd.OutOrStdout()
	w := &watcher{
		monitor:  monitor,
		render:   newRenderer(out, cfg.Output.Color),
		out:      out,
		textfile: cfg.Metrics.Textfile,
		gatherer: reg,
		logger:   logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return w.renderLoop(gctx) })
	if interactive {
		lines := readLines(cmd.InOrStdin())
		fmt.Fprintln(out, w.render.Hint(`commands: up, down, toggle, quit`))
		g.Go(func() error { return w.commandLoop(gctx, lines) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// watcher is the terminal consumer of a Monitor.
type watcher struct {
	monitor  *daemon.Monitor
	render   *renderer
	out      io.Writer
	textfile string
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	last    domain.StatusSnapshot
	printed bool
}

// renderLoop prints a snapshot whenever a displayed field changes.
func (w *watcher) renderLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap := <-w.monitor.Snapshots():
			if !w.printed || changed(w.last, snap) {
				fmt.Fprintln(w.out, w.render.Snapshot(snap))
				fmt.Fprintln(w.out)
			}
			w.last, w.printed = snap, true
			w.exportMetrics()

		case res := <-w.monitor.ActionResults():
			fmt.Fprintln(w.out, w.render.ActionResult(res))
			w.exportMetrics()
		}
	}
}

func (w *watcher) exportMetrics() {
	if err := metrics.WriteTextfile(w.textfile, w.gatherer); err != nil {
		w.logger.Warn("metrics textfile export failed", zap.Error(err))
	}
}

// commandLoop turns prompt lines into actions until stdin closes.
func (w *watcher) commandLoop(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := w.handleCommand(ctx, strings.TrimSpace(strings.ToLower(line))); err != nil {
				return err
			}
		}
	}
}

func (w *watcher) handleCommand(ctx context.Context, line string) error {
	var err error
	switch line {
	case "":
		return nil
	case "q", "quit", "exit":
		return errQuit
	case "up", "connect":
		err = w.monitor.RequestAction(ctx, domain.ActionConnect)
	case "down", "disconnect":
		err = w.monitor.RequestAction(ctx, domain.ActionDisconnect)
	case "t", "toggle":
		var action domain.Action
		action, err = w.monitor.Toggle(ctx)
		if err == nil {
			fmt.Fprintln(w.out, w.render.Hint(string(action)+"ing..."))
		}
	default:
		fmt.Fprintln(w.out, w.render.Hint(fmt.Sprintf("unknown command %q", line)))
		return nil
	}

	if errors.Is(err, domain.ErrBusy) {
		fmt.Fprintln(w.out, w.render.Hint("busy: previous action still running"))
		return nil
	}
	return err
}

// changed compares the fields the terminal shows.
func changed(a, b domain.StatusSnapshot) bool {
	return a.Connected != b.Connected ||
		a.Hostname != b.Hostname ||
		a.TailnetName != b.TailnetName ||
		a.ExitNodeHost != b.ExitNodeHost
}

// readLines feeds stdin lines into a channel. The reader goroutine cannot be
// interrupted and ends with the process.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

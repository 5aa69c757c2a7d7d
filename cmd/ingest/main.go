package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ingest/internal/app"
	"ingest/internal/config"
	appErrors "ingest/internal/errors"
	"ingest/internal/history"
	"ingest/internal/infra/exif"
	"ingest/internal/infra/fs"
	"ingest/internal/infra/volumes"
	"ingest/internal/logging"
	"ingest/internal/state"
	"ingest/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

var configDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitWithError(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Copy new SD cards and USB drives as they are plugged in",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default "+config.DefaultDir()+")")

	root.AddCommand(
		newWatchCmd(),
		newCopyCmd(),
		newConfigCmd(),
		newHistoryCmd(),
		newDevicesCmd(),
		newMountCmd(),
	)
	return root
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for volumes and copy them on confirmation (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
}

// env is everything a command needs, built from the loaded configuration.
type env struct {
	dir      string
	settings *config.Shared
	logger   *slog.Logger
	history  *history.Store

	progress *state.Progress
	log      *state.Log
	queue    *state.Queue
	fs       fs.OSFS
}

func setup() (*env, error) {
	dir := configDir
	if dir == "" {
		dir = config.DefaultDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.InvalidConfig, "load config", dir, err)
	}

	logger, err := logging.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		// Fall back to a discarding logger if file logging fails
		logger = logging.Discard()
	}
	slog.SetDefault(logger)

	e := &env{
		dir:      dir,
		settings: config.NewShared(dir, cfg),
		logger:   logger,
		progress: state.NewProgress(),
		log:      state.NewLog(),
		queue:    state.NewQueue(),
		fs:       fs.OSFS{},
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
	} else {
		e.history = store
	}
	return e, nil
}

func (e *env) close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.logger.Warn("closing history failed", "error", err)
		}
	}
}

func (e *env) copier() *app.Copier {
	return &app.Copier{
		FS:       e.fs,
		Space:    volumes.Space{},
		Progress: e.progress,
		Log:      e.log,
		Logger:   e.logger,
	}
}

func (e *env) dispatcher() *app.Dispatcher {
	d := &app.Dispatcher{
		Copier:   e.copier(),
		Queue:    e.queue,
		Progress: e.progress,
		Log:      e.log,
		Logger:   e.logger,
	}
	if e.history != nil {
		d.History = e.history
	}
	return d
}

func runWatch(parent context.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg := e.settings.Snapshot()
	e.logger.Info("starting ingest", "version", Version, "config_dir", e.dir)

	watcher := &app.Watcher{
		Volumes:     volumes.NewLister(cfg.Watch.MountRoots),
		FS:          e.fs,
		Queue:       e.queue,
		Log:         e.log,
		Progress:    e.progress,
		Destination: e.settings.Destination,
		Interval:    cfg.Watch.Interval,
		Logger:      e.logger,
	}
	dispatcher := e.dispatcher()

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("watcher stopped", "error", err)
			e.log.Appendf("Watcher stopped: %v", err)
		}
	}()

	tuiCfg := tui.Config{
		Context:    ctx,
		Progress:   e.progress,
		Log:        e.log,
		Queue:      e.queue,
		Dispatcher: dispatcher,
		Scanner:    watcher,
		Settings:   e.settings,
		Preview:    exif.Reader{},
		Devices:    volumes.Devices{},
	}
	if e.history != nil {
		tuiCfg.History = e.history
	}
	model := tui.NewModel(tuiCfg)

	p := tea.NewProgram(model, tea.WithAltScreen())
	e.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		e.logger.Error("TUI error", "error", err)
		return appErrors.Wrap(appErrors.Internal, "tui", "", err)
	}

	// Copies stop at the next file boundary once ctx is cancelled.
	cancel()
	if n := dispatcher.Running(); n > 0 {
		fmt.Fprintf(os.Stderr, "Stopping %d running copy(s)...\n", n)
	}
	dispatcher.Wait()

	e.logger.Info("shutting down")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, appErrors.UserMessage(err))
	os.Exit(1)
}

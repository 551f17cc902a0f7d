//go:build linux

// Package daemon runs the window manager: it owns the X connection, the
// event loop and the services around it.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/hotkeys"
	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/runtimepath"
	"github.com/1broseidon/tagwm/internal/wm"
)

// ErrDisplayClosed is returned by Run when the X event loop stops.
var ErrDisplayClosed = errors.New("X event loop stopped")

// Options configures a Daemon.
type Options struct {
	// ConfigPath is the YAML file read at start and on reload.
	ConfigPath string
	// SocketPath overrides the IPC socket location.
	SocketPath string
	// Level, when set, follows log_level across reloads.
	Level  *slog.LevelVar
	Logger *slog.Logger
}

// Daemon is a running window manager instance.
type Daemon struct {
	opts    Options
	logger  *slog.Logger
	cfg     *config.Config
	backend *platform.LinuxBackend
	wm      *wm.Manager
	keys    *hotkeys.Handler
	server  *ipc.Server
	work    chan func()
	ticker  *time.Ticker
}

// New loads the configuration, connects to the display and claims window
// management. Only one window manager may run per display.
func New(opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.ConfigPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		opts.ConfigPath = path
	}
	cfg, err := config.LoadFromPath(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Level != nil {
		opts.Level.Set(cfg.SlogLevel())
	}

	if cfg.XAuthority != "" {
		_ = os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		return nil, err
	}
	if err := backend.BecomeWM(); err != nil {
		backend.Disconnect()
		return nil, err
	}

	manager, err := wm.New(cfg, backend, logger)
	if err != nil {
		backend.Disconnect()
		return nil, err
	}

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			backend.Disconnect()
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}

	return &Daemon{
		opts:    opts,
		logger:  logger,
		cfg:     cfg,
		backend: backend,
		wm:      manager,
		keys:    hotkeys.NewHandler(backend.XUtil(), backend.RootWindow(), logger),
		server:  ipc.NewServer(socketPath, logger),
		work:    make(chan func()),
	}, nil
}

// Run manages windows until ctx is cancelled, SIGINT or SIGTERM arrives,
// or the display connection ends. SIGHUP reloads the configuration.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.backend.Disconnect()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	xu := d.backend.XUtil()
	xevent.ErrorHandlerSet(xu, func(err xgb.Error) {
		d.logger.Debug("X error", "error", err)
	})
	d.backend.Events(d.wm.Dispatch)

	if err := d.wm.Start(); err != nil {
		return err
	}
	defer d.wm.Release()
	d.bindKeys()
	d.resetTimer()
	defer d.stopTimer()

	reconciler := NewReconciler(ReconcilerConfig{Logger: d.logger}, d.backend.TopLevelWindows, d.wm)

	super := newSupervisor("tagwm", d.logger)
	add(super, d.server)
	add(super, newServiceFunc("reconciler", func(ctx context.Context) error {
		return reconciler.Run(ctx, d.post(ctx))
	}))
	superErr := super.ServeBackground(ctx)

	cmd := &commander{wm: d.wm, reload: d.reload}
	pingBefore, pingAfter, pingQuit := xevent.MainPing(xu)

	d.logger.Info("tagwm started", "screens", len(d.wm.Registry().Screens()))

	for {
		select {
		case <-pingBefore:
			<-pingAfter
			d.wm.Flush()
		case call := <-d.server.Calls():
			call.Reply(cmd.handle(call.Request))
			d.wm.Flush()
		case fn := <-d.work:
			fn()
			d.wm.Flush()
		case <-d.tick():
			d.wm.Tick()
		case <-hup:
			d.logger.Info("received SIGHUP, reloading config")
			if err := d.reload(); err != nil {
				d.logger.Error("config reload failed", "error", err)
			}
			d.wm.Flush()
		case <-pingQuit:
			return ErrDisplayClosed
		case err := <-superErr:
			if ctx.Err() != nil {
				d.logger.Info("shutting down")
				return nil
			}
			return fmt.Errorf("supervisor stopped: %w", err)
		case <-ctx.Done():
			d.logger.Info("shutting down")
			return nil
		}
	}
}

// post returns a function handing fn to the loop goroutine.
func (d *Daemon) post(ctx context.Context) func(func()) {
	return func(fn func()) {
		select {
		case d.work <- fn:
		case <-ctx.Done():
		}
	}
}

func (d *Daemon) reload() error {
	cfg, err := config.LoadFromPath(d.opts.ConfigPath)
	if err != nil {
		return err
	}
	d.cfg = cfg
	if d.opts.Level != nil {
		d.opts.Level.Set(cfg.SlogLevel())
	}
	d.wm.Reload(cfg)
	d.keys.UnbindAll()
	d.bindKeys()
	d.resetTimer()
	return nil
}

func (d *Daemon) bindKeys() {
	if err := d.keys.Bind(d.cfg.Keys, d.wm); err != nil {
		d.logger.Warn("some hotkeys are unavailable", "error", err)
	}
}

func (d *Daemon) resetTimer() {
	d.stopTimer()
	if d.cfg.TimerInterval > 0 {
		d.ticker = time.NewTicker(time.Duration(d.cfg.TimerInterval) * time.Second)
	}
}

func (d *Daemon) stopTimer() {
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
}

// tick is nil, and so never ready, while the timer hook is disabled.
func (d *Daemon) tick() <-chan time.Time {
	if d.ticker == nil {
		return nil
	}
	return d.ticker.C
}

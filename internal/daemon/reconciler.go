package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/tagwm/internal/platform"
)

// WindowLister returns the top-level windows that currently exist.
type WindowLister func() ([]platform.WindowID, error)

// Pruner drops managed clients whose windows no longer exist.
type Pruner interface {
	Prune(existing []platform.WindowID) int
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically compares the managed clients with the windows on
// the display and drops the ones whose destruction was missed.
type Reconciler struct {
	interval    time.Duration
	listWindows WindowLister
	target      Pruner
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, listWindows WindowLister, target Pruner) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval:    interval,
		listWindows: listWindows,
		target:      target,
		logger:      logger,
	}
}

// Run posts a reconciliation pass to the window manager loop on every
// interval. Blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, post func(func())) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			post(r.ReconcileNow)
		}
	}
}

// ReconcileNow runs one pass. It must run on the window manager loop.
func (r *Reconciler) ReconcileNow() {
	windows, err := r.listWindows()
	if err != nil {
		r.logger.Warn("reconcile: failed to list windows", "error", err)
		return
	}
	if n := r.target.Prune(windows); n > 0 {
		r.logger.Info("reconcile: dropped vanished clients", "count", n)
	}
}

package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/tagwm/internal/platform"
)

type recordingPruner struct {
	calls [][]platform.WindowID
}

func (p *recordingPruner) Prune(existing []platform.WindowID) int {
	p.calls = append(p.calls, existing)
	return 0
}

func TestReconciler_ReconcileNowPassesWindows(t *testing.T) {
	p := &recordingPruner{}
	r := NewReconciler(ReconcilerConfig{Logger: quietLogger()}, func() ([]platform.WindowID, error) {
		return []platform.WindowID{4, 5}, nil
	}, p)

	r.ReconcileNow()
	if len(p.calls) != 1 || len(p.calls[0]) != 2 {
		t.Fatalf("unexpected prune calls %v", p.calls)
	}
}

func TestReconciler_ListErrorSkipsPrune(t *testing.T) {
	p := &recordingPruner{}
	r := NewReconciler(ReconcilerConfig{Logger: quietLogger()}, func() ([]platform.WindowID, error) {
		return nil, errors.New("connection closed")
	}, p)

	r.ReconcileNow()
	if len(p.calls) != 0 {
		t.Fatalf("expected no prune on list failure")
	}
}

func TestReconciler_RunPostsPasses(t *testing.T) {
	p := &recordingPruner{}
	r := NewReconciler(ReconcilerConfig{Interval: 5 * time.Millisecond, Logger: quietLogger()},
		func() ([]platform.WindowID, error) { return nil, nil }, p)

	ctx, cancel := context.WithCancel(context.Background())
	posted := make(chan func(), 1)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(fn func()) {
			select {
			case posted <- fn:
			case <-ctx.Done():
			}
		})
	}()

	select {
	case fn := <-posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("reconciler never posted a pass")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(p.calls) == 0 {
		t.Fatalf("expected a prune call")
	}
}

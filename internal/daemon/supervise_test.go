package daemon

import (
	"context"
	"errors"
	"testing"

	"github.com/thejerf/suture/v4"
)

func TestSanitizeError_HidesStaleContextErrors(t *testing.T) {
	ctx := context.Background()

	err := sanitizeError(ctx, context.Canceled)
	if errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error hidden while ctx is live")
	}

	err = sanitizeError(ctx, errors.Join(context.Canceled, suture.ErrDoNotRestart))
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("expected ErrDoNotRestart kept, got %v", err)
	}

	plain := errors.New("boom")
	if got := sanitizeError(ctx, plain); got != plain {
		t.Fatalf("expected plain error unchanged, got %v", got)
	}
	if sanitizeError(ctx, nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}

func TestSanitizeError_DoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sanitizeError(ctx, errors.New("listener closed")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ctx error once done, got %v", err)
	}
}

func TestServiceFunc(t *testing.T) {
	called := false
	svc := newServiceFunc("probe", func(ctx context.Context) error {
		called = true
		return nil
	})
	if svc.String() != "probe" {
		t.Fatalf("unexpected name %q", svc.String())
	}
	if err := svc.Serve(context.Background()); err != nil || !called {
		t.Fatalf("expected fn called, err=%v", err)
	}
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// newSupervisor returns a supervisor whose events are logged through logger.
func newSupervisor(name string, logger *slog.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: eventHook(logger),
	})
}

func eventHook(logger *slog.Logger) suture.EventHook {
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.Info("service failed to terminate in a timely manner", "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventServicePanic:
			logger.Warn("caught a service panic", "service", e.ServiceName, "panic", e.PanicMsg)
			logger.Debug(e.Stacktrace)
		case suture.EventServiceTerminate:
			logger.Error("service failed", "error", e.Err, "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventBackoff:
			logger.Debug("too many service failures, entering backoff", "supervisor", e.SupervisorName)
		case suture.EventResume:
			logger.Debug("exiting backoff", "supervisor", e.SupervisorName)
		default:
			b, _ := json.Marshal(e)
			logger.Warn("unknown supervisor event", "type", int(e.Type()), "event", string(b))
		}
	}
}

// service forces the use of the String method
type service interface {
	String() string
	suture.Service
}

func add(super *suture.Supervisor, svc service) suture.ServiceToken {
	return super.Add(sanitizeService{service: svc})
}

type sanitizeService struct {
	service
}

func (s sanitizeService) Serve(ctx context.Context) error {
	return sanitizeError(ctx, s.service.Serve(ctx))
}

// sanitizeError keeps a service error from reading as a context error
// unless ctx really is done; suture stops restarting a service that
// returns one.
func sanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var errs [3]error
	if errors.Is(err, suture.ErrDoNotRestart) {
		errs[0] = suture.ErrDoNotRestart
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs[1] = suture.ErrTerminateSupervisorTree
	}
	errs[2] = errors.New(err.Error())

	return errors.Join(errs[:]...)
}

type serviceFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func newServiceFunc(name string, fn func(ctx context.Context) error) serviceFunc {
	return serviceFunc{name: name, fn: fn}
}

func (s serviceFunc) String() string {
	return s.name
}

func (s serviceFunc) Serve(ctx context.Context) error {
	return s.fn(ctx)
}

package wiring

import (
	"context"
	"os/signal"
	"syscall"
)

// WaitForShutdown blocks until SIGTERM, SIGINT or SIGQUIT is received, ctx is done, or one of the
// serving goroutines reports an error on errs. It returns that error, nil otherwise.
//
// Serving goroutines report on errs instead of exiting so that callers still run their deferred cleanup.
func WaitForShutdown(ctx context.Context, errs <-chan error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

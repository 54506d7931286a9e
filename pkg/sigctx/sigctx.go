package sigctx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ErrSignaled is the cancel cause of a context stopped by a signal.
var ErrSignaled = errors.New("stop signal received")

var stopSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// NotifyContext returns a copy of parent that is canceled on the first
// SIGINT, SIGTERM or SIGQUIT. [context.Cause] reports the signal.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return notifyContext(parent, stopSignals...)
}

func notifyContext(
	parent context.Context, sigs ...os.Signal,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			cancel(fmt.Errorf("%w: %s", ErrSignaled, sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

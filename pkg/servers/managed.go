package servers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Start runs server in its own goroutine. A Run error is pushed to errChan
// without blocking; the returned StopFn stops the server within the timeout.
func Start(ctx context.Context, name string, server Server, errChan chan<- error) StopFn {
	go func() {
		err := server.Run(ctx)
		if err == nil {
			return
		}

		select {
		case errChan <- err:
		default:
			log.Ctx(ctx).Error().Err(err).Str("component", name).Msg("error channel full, dropping server error")
		}
	}()

	return func(ctx context.Context, timeout time.Duration) {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		err := server.Stop(stopCtx)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("stage", "shut down").Str("component", name).Msg("unable to stop server")
		}
	}
}

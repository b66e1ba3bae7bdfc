package servers

import (
	"context"

	"github.com/rs/zerolog/log"

	"lemur-calendar/pkg/resources"
)

// baseServer owns resources that live as long as the process (the database
// pool) and releases them when stopped.
type baseServer struct {
	name      string
	done      chan struct{}
	closables []resources.Closable
}

func BuildBaseServer(closables ...resources.Closable) (string, Server) {
	return "base-server", NewBaseServer(closables...)
}

func NewBaseServer(closables ...resources.Closable) Server {
	return &baseServer{
		name:      "base-server",
		done:      make(chan struct{}),
		closables: closables,
	}
}

func (server *baseServer) Run(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "startup").Str("component", server.name).Int("closables", len(server.closables)).Msg("starting up")

	select {
	case <-server.done:
	case <-ctx.Done():
	}

	return nil
}

func (server *baseServer) Stop(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopping")
	defer log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopped")

	select {
	case <-server.done:
		return nil
	default:
	}

	for _, closable := range server.closables {
		closable.Close()
	}

	close(server.done)

	return nil
}

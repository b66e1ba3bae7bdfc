package servers

import (
	"context"
	"net/http"
	"time"

	"github.com/qmdx00/lifecycle"
)

var (
	_ Server = (*httpServer)(nil)
	_ Server = (*baseServer)(nil)
)

type Server interface {
	lifecycle.Server
}

// StopFn stops a managed server, waiting at most timeout.
type StopFn func(ctx context.Context, timeout time.Duration)

var (
	_ BuildHttpServerFn = BuildHttpServer
)

type BuildHttpServerFn func(name string, host string, port string, handler http.Handler) (string, Server)

package servers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	closed int
}

func (c *closeCounter) Close() {
	c.closed++
}

type failingServer struct{}

func (failingServer) Run(context.Context) error {
	return errors.New("address already in use")
}

func (failingServer) Stop(context.Context) error {
	return nil
}

func TestStart_BaseServerClosesResources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errChan := make(chan error, 1)
	closable := &closeCounter{}

	name, server := BuildBaseServer(closable)
	assert.Equal(t, "base-server", name)

	stopFn := Start(ctx, name, server, errChan)
	stopFn(ctx, time.Second)
	stopFn(ctx, time.Second)

	assert.Equal(t, 1, closable.closed)
	assert.Empty(t, errChan)
}

func TestStart_ReportsRunErrors(t *testing.T) {
	t.Parallel()

	errChan := make(chan error, 1)

	Start(context.Background(), "broken", failingServer{}, errChan)

	select {
	case err := <-errChan:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address already in use")
	case <-time.After(5 * time.Second):
		t.Fatal("run error was not reported")
	}
}

func TestBuildHttpServer(t *testing.T) {
	t.Parallel()

	name, server := BuildHttpServer("rest-server", "localhost", "0", http.NotFoundHandler())
	assert.Equal(t, "rest-server", name)

	internal, ok := server.(*httpServer)
	require.True(t, ok)
	assert.Equal(t, "localhost:0", internal.internal.Addr)
	assert.Equal(t, readHeaderTimeout, internal.internal.ReadHeaderTimeout)

	errChan := make(chan error, 1)
	stopFn := Start(context.Background(), name, server, errChan)
	stopFn(context.Background(), time.Second)

	select {
	case err := <-errChan:
		t.Fatalf("unexpected run error: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

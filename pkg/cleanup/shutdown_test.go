// Graceful shutdown tests in Mechat.

package cleanup

import (
	"Mechat/pkg/log"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during cleanup testing.
var logger log.Logger = log.NewWithWriter("test", io.Discard)

// Helper which serves a bare gin router on a random local port.
func startServer(t *testing.T) (*http.Server, string) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api", func(gctx *gin.Context) {
		gctx.Status(http.StatusOK)
	})
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: router}
	// Serve is a blocking operation, putting it a goroutine
	go func() {
		if err := srv.Serve(lis); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Error in Serve()")
		}
	}()
	return srv, "http://" + lis.Addr().String() + "/api"
}

func shutdownOnSignal(t *testing.T, sig syscall.Signal) {
	srv, url := startServer(t)
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()

	var closed atomic.Bool
	// Graceful shutdown of Mechat server triggered due to system interruptions
	wait := GracefulShutdown(context.Background(), logger, 5*time.Second, map[string]Operation{
		"Gin": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"Hub": func(ctx context.Context) error {
			closed.Store(true)
			return nil
		},
		"Broken": func(ctx context.Context) error {
			return errors.New("already closed")
		},
	})
	require.NoError(t, syscall.Kill(syscall.Getpid(), sig))

	select {
	case <-wait:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.True(t, closed.Load())
	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestGracefulShutdownSIGINT(t *testing.T) {
	shutdownOnSignal(t, syscall.SIGINT)
}

func TestGracefulShutdownSIGTERM(t *testing.T) {
	shutdownOnSignal(t, syscall.SIGTERM)
}

func TestGracefulShutdownForcesExitOnTimeout(t *testing.T) {
	exited := make(chan int, 1)
	exit = func(code int) { exited <- code }
	defer func() { exit = os.Exit }()

	release := make(chan struct{})
	wait := GracefulShutdown(context.Background(), logger, 50*time.Millisecond, map[string]Operation{
		"Stuck": func(ctx context.Context) error {
			<-release
			return nil
		},
	})
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))

	select {
	case code := <-exited:
		assert.Equal(t, 3, code)
	case <-time.After(3 * time.Second):
		t.Fatal("forced exit was not triggered")
	}
	close(release)
	<-wait
}

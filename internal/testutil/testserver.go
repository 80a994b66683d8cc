// Package testutil spins up the in-memory reference server for tests
// that need a real HTTP endpoint.
package testutil

import (
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/getmyuri/getmyuri-client/internal/mockapi"
)

// TestServer is a running reference server bound to an ephemeral port.
type TestServer struct {
	URL   string
	Store *mockapi.Store
}

// StartTestServer boots the reference server on a random local port and
// wires its base URL into generated short links. Shutdown is registered
// as a test cleanup.
func StartTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + listener.Addr().String()

	store := mockapi.NewStore()
	logger := slog.New(slog.DiscardHandler)

	router := gin.New()
	mockapi.NewHandler(store, baseURL, "/auth", logger).RegisterRoutes(router)

	srv := &http.Server{Handler: router}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Errorf("test server: %v", err)
		}
	}()
	t.Cleanup(func() { _ = srv.Close() })

	return &TestServer{URL: baseURL, Store: store}
}

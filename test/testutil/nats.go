package testutil

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// StartEmbeddedNATS starts an embedded core NATS server for testing.
//
// The server listens on a random available port. Both the connection and the
// server are automatically cleaned up when the test completes.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - *nats.Conn: A connection ready for request/reply
func StartEmbeddedNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns := startServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect to NATS server")

	t.Cleanup(func() {
		nc.Close()
	})

	return nc
}

// StartEmbeddedNATSPair starts one embedded server and returns two independent
// connections to it, one for the requesting side and one for the serving side.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - *nats.Conn: Client-side connection
//   - *nats.Conn: Server-side connection
func StartEmbeddedNATSPair(t *testing.T) (*nats.Conn, *nats.Conn) {
	t.Helper()

	ns := startServer(t)

	client, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect client to NATS server")
	srv, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect server to NATS server")

	t.Cleanup(func() {
		client.Close()
		srv.Close()
	})

	return client, srv
}

func startServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err, "failed to create NATS server")

	ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready for connections")
	}

	t.Cleanup(ns.Shutdown)

	return ns
}

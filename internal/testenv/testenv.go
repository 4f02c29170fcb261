// Package testenv starts an embedded, in-process NATS server (JetStream
// enabled) for self-contained tests, so package tests in this module do
// not depend on an external nats-server process. The teacher's go.mod
// already carries nats-server/v2 as a direct dependency with no caller in
// the teacher's own source; this package is the one that uses it.
package testenv

import (
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// Server wraps a running embedded nats-server instance and a connected
// client.
type Server struct {
	NS   *server.Server
	Conn *nats.Conn
	JS   nats.JetStreamContext
}

// Start launches an embedded server on a free port with JetStream
// enabled, connects a client, and registers cleanup with t.
func Start(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // let the OS pick a free port
		JetStream: true,
		StoreDir:  dir,
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded nats server did not become ready")
	}
	t.Cleanup(ns.Shutdown)

	url := fmt.Sprintf("nats://%s", ns.Addr().String())
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := nc.JetStream()
	require.NoError(t, err)

	return &Server{NS: ns, Conn: nc, JS: js}
}

// ObjectStore creates (or reuses) a JetStream object store bucket named
// bucket for the duration of the test.
func (s *Server) ObjectStore(t *testing.T, bucket string) nats.ObjectStore {
	t.Helper()
	store, err := s.JS.CreateObjectStore(&nats.ObjectStoreConfig{Bucket: bucket})
	require.NoError(t, err)
	return store
}

// KeyValue creates (or reuses) a JetStream key/value bucket named bucket
// for the duration of the test.
func (s *Server) KeyValue(t *testing.T, bucket string) nats.KeyValue {
	t.Helper()
	kv, err := s.JS.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket})
	require.NoError(t, err)
	return kv
}

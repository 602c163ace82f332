package nats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduresolve/support-platform/pkg/logger"
)

// runJetStream starts an in-process JetStream server and connects a Client to it.
func runJetStream(t *testing.T) *Client {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(srv.Shutdown)

	client, err := Connect(context.Background(), Config{Name: t.Name(), URL: srv.ClientURL()}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, defaultClientName, cfg.Name)
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, defaultReconnectWait, cfg.ReconnectWait)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, defaultReconnectBuffer, cfg.ReconnectBuffer)

	custom := Config{Name: "api", MaxReconnects: 3, ReconnectWait: time.Second}.withDefaults()
	assert.Equal(t, "api", custom.Name)
	assert.Equal(t, 3, custom.MaxReconnects)
	assert.Equal(t, time.Second, custom.ReconnectWait)
}

func TestConfigTLS(t *testing.T) {
	cfg := Config{CAFile: "ca.pem", CertFile: "cert.pem"}
	assert.False(t, cfg.tlsEnabled(), "partial TLS settings are ignored")

	opts, err := cfg.options(logger.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	dir := t.TempDir()
	cfg.CAFile = filepath.Join(dir, "missing-ca.pem")
	cfg.KeyFile = filepath.Join(dir, "key.pem")
	_, err = cfg.options(logger.NewNop())
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	client := runJetStream(t)
	assert.True(t, client.IsConnected())
	assert.NotNil(t, client.JetStream())

	_, err := Connect(context.Background(), Config{URL: "nats://127.0.0.1:1", MaxReconnects: 1}, logger.NewNop())
	assert.Error(t, err)

	var closed Client
	closed.Close()
	assert.False(t, closed.IsConnected())
}

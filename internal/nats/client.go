// Package nats publishes conversation lifecycle events to NATS JetStream and consumes them.
package nats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/pkg/logger"
)

// Config describes how the API connects to NATS.
// Zero values fall back to the defaults below.
type Config struct {
	Name string
	URL  string

	// Mutual TLS is enabled only when all three files are set.
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string

	ReconnectWait   time.Duration
	MaxReconnects   int
	ReconnectBuffer int
}

const (
	defaultClientName      = "eduresolve-support"
	defaultReconnectWait   = 2 * time.Second
	defaultReconnectBuffer = 8 << 20
)

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = defaultClientName
	}
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = defaultReconnectWait
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	if c.ReconnectBuffer <= 0 {
		c.ReconnectBuffer = defaultReconnectBuffer
	}
	return c
}

func (c Config) tlsEnabled() bool {
	return c.CAFile != "" && c.CertFile != "" && c.KeyFile != ""
}

// options translates the config into connection options that report
// connection state changes to log.
func (c Config) options(log *logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name(c.Name),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.ReconnectBufSize(c.ReconnectBuffer),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("event bus disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("event bus reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub == nil {
				log.Error("event bus error", zap.Error(err))
				return
			}
			log.Error("event bus subscription error", zap.String("subject", sub.Subject), zap.Error(err))
		}),
	}

	if c.tlsEnabled() {
		tlsConfig, err := loadMutualTLS(c.CAFile, c.CertFile, c.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	return opts, nil
}

// Client holds the connection used for lifecycle events.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials NATS and opens a JetStream context.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	log = log.Named("nats")

	opts, err := cfg.options(log)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS TLS settings: %w", err)
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open JetStream: %w", err)
	}

	log.Info("event bus connected",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("client", cfg.Name),
		zap.Bool("tls", cfg.tlsEnabled()),
	)
	return &Client{conn: nc, js: js, logger: log}, nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close drains pending publishes and closes the connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

func loadMutualTLS(caFile, certFile, keyFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA %s: %w", caFile, err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, errors.New("CA file contains no PEM certificates")
	}

	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client key pair: %w", err)
	}

	return &tls.Config{
		RootCAs:      roots,
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

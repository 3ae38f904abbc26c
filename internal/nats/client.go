// Package nats publishes job events to NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/docbot/docbot/pkg/logger"
)

// ConnectionName identifies the bot to the NATS server.
const ConnectionName = "docbot-" + StreamName

const (
	connectTimeout  = 5 * time.Second
	reconnectWait   = 2 * time.Second
	reconnectBuffer = 8 * 1024 * 1024
)

var ErrIncompleteClientCert = errors.New("NATS client certificate needs both cert and key files")

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Client holds the connection job events are published over.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// connectOptions builds the connection options for cfg. Job events published
// while disconnected are buffered up to reconnectBuffer and flushed on
// reconnect.
func connectOptions(cfg Config, log *logger.Logger) ([]nats.Option, error) {
	log = log.With(zap.String("stream", StreamName))

	opts := []nats.Option{
		nats.Name(ConnectionName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.ReconnectBufSize(reconnectBuffer),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("Job events buffering, NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Job events resumed, NATS reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" {
		opts = append(opts, nats.RootCAs(cfg.CAFile))
	}
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		opts = append(opts, nats.ClientCert(cfg.CertFile, cfg.KeyFile))
	case cfg.CertFile != "" || cfg.KeyFile != "":
		return nil, ErrIncompleteClientCert
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	return opts, nil
}

// Connect dials NATS and verifies the server answers before ctx is done.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	opts, err := connectOptions(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Connecting to NATS for job events",
		zap.String("url", cfg.URL),
		zap.Bool("tls", cfg.CAFile != "" || cfg.CertFile != ""),
	)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := nc.FlushWithContext(flushCtx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("NATS did not answer: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{conn: nc, js: js}, nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close flushes buffered publishes, then closes the connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	_ = c.conn.FlushTimeout(reconnectWait)
	c.conn.Close()
}

// IsConnected reports whether job events can currently be published.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

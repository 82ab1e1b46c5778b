// Package nats is the NATS JetStream transport. Every queue is a work-queue
// stream, so a fetched and acknowledged message is gone for good.
package nats

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	natsclient "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

const (
	DefaultPort = 4222
	DefaultHost = "localhost"

	// DefaultFetchWait is how long a get waits on the pull consumer before the
	// queue counts as empty.
	DefaultFetchWait = 500 * time.Millisecond

	clientName = "mqk"
)

// Options configures the NATS transport
type Options struct {
	TLS       *tls.Config
	FetchWait time.Duration
}

// Transport opens NATS connections with a JetStream context
type Transport struct {
	opts Options
	log  zerolog.Logger
}

// NewTransport creates a NATS transport
func NewTransport(opts Options, log zerolog.Logger) *Transport {
	if opts.FetchWait <= 0 {
		opts.FetchWait = DefaultFetchWait
	}
	return &Transport{opts: opts, log: log}
}

// Connect implements backends.Transport
func (t *Transport) Connect(ctx context.Context, opts backends.ConnectOptions) (backends.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server := ServerURL(opts, t.opts.TLS != nil)
	nc, js, err := ConnectWithJetStream(server, opts.User, opts.Password, t.opts.TLS)
	if err != nil {
		return nil, err
	}

	log := t.log.With().Str("server", server).Str("qmgr", opts.QueueManager).Logger()
	log.Debug().Msg("jetstream context ready")

	return &session{nc: nc, js: js, wait: t.opts.FetchWait, log: log}, nil
}

// ServerURL builds nats://host:port, or tls://host:port when secure is set
func ServerURL(opts backends.ConnectOptions, secure bool) string {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	scheme := "nats"
	if secure {
		scheme = "tls"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Connect creates and returns a NATS connection.
func Connect(server, user, password string, tlsConfig *tls.Config) (*natsclient.Conn, error) {
	opts := []natsclient.Option{natsclient.Name(clientName)}

	if user != "" {
		opts = append(opts, natsclient.UserInfo(user, password))
	}
	if tlsConfig != nil {
		opts = append(opts, natsclient.Secure(tlsConfig))
	}

	nc, err := natsclient.Connect(server, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS server %s: %w", server, err)
	}

	return nc, nil
}

// ConnectWithJetStream connects to NATS and returns both the connection and JetStream context.
func ConnectWithJetStream(server, user, password string, tlsConfig *tls.Config) (*natsclient.Conn, natsclient.JetStreamContext, error) {
	nc, err := Connect(server, user, password, tlsConfig)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	return nc, js, nil
}

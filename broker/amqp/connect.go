// Package amqp is the AMQP 1.0 transport, for brokers such as Apache Artemis and
// RabbitMQ 4 that expose queues over AMQP.
package amqp

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	amqpclient "github.com/Azure/go-amqp"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

const (
	DefaultPort = 5672
	DefaultHost = "localhost"

	// DefaultReceiveWindow is how long a get waits for a message to arrive before
	// the queue counts as empty.
	DefaultReceiveWindow = 500 * time.Millisecond

	containerID = "mqk"
)

// Options configures the AMQP transport
type Options struct {
	TLS           *tls.Config // nil for plain amqp://
	ReceiveWindow time.Duration
}

// Transport opens AMQP 1.0 connections
type Transport struct {
	opts Options
	log  zerolog.Logger
}

// NewTransport creates an AMQP transport
func NewTransport(opts Options, log zerolog.Logger) *Transport {
	if opts.ReceiveWindow <= 0 {
		opts.ReceiveWindow = DefaultReceiveWindow
	}
	return &Transport{opts: opts, log: log}
}

// Connect implements backends.Transport. The queue manager name only labels the
// session; AMQP addresses queues by name alone.
func (t *Transport) Connect(ctx context.Context, opts backends.ConnectOptions) (backends.Session, error) {
	server := ServerURL(opts, t.opts.TLS != nil)
	log := t.log.With().Str("server", server).Str("qmgr", opts.QueueManager).Logger()

	conn, sess, err := Connect(ctx, server, opts.User, opts.Password, t.opts.TLS)
	if err != nil {
		return nil, err
	}
	log.Debug().Msg("amqp session opened")

	return &session{
		conn:   conn,
		sess:   sess,
		window: t.opts.ReceiveWindow,
		log:    log,
	}, nil
}

// ServerURL builds amqp://host:port, or amqps:// when secure is set
func ServerURL(opts backends.ConnectOptions, secure bool) string {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	scheme := "amqp"
	if secure {
		scheme = "amqps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Connect establishes an AMQP 1.0 connection with SASL PLAIN when a user is
// given and SASL ANONYMOUS otherwise.
func Connect(ctx context.Context, server, user, password string, tlsConfig *tls.Config) (*amqpclient.Conn, *amqpclient.Session, error) {
	connOptions := &amqpclient.ConnOptions{
		ContainerID: containerID,
		SASLType:    amqpclient.SASLTypeAnonymous(),
		TLSConfig:   tlsConfig,
	}
	if user != "" {
		connOptions.SASLType = amqpclient.SASLTypePlain(user, password)
	}

	conn, err := amqpclient.Dial(ctx, server, connOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", server, err)
	}

	sess, err := conn.NewSession(ctx, nil)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}

	return conn, sess, nil
}

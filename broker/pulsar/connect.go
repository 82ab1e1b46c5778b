// Package pulsar is the Apache Pulsar transport. Every queue is a persistent
// topic read through one Shared subscription, so an acknowledged message is
// gone for every mqk client.
package pulsar

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	pulsarclient "github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

const (
	DefaultPort = 6650
	DefaultHost = "localhost"

	// DefaultReceiveWindow is how long a get waits for a message to arrive before
	// the queue counts as empty. Pulsar dispatch is slower than AMQP link credit.
	DefaultReceiveWindow = time.Second

	operationTimeout = 30 * time.Second

	connectCheckTopic = "mqk-connect"
)

// Options configures the Pulsar transport
type Options struct {
	TLS           *tls.Config // nil for plain pulsar://
	ReceiveWindow time.Duration
}

// Transport opens Pulsar clients
type Transport struct {
	opts Options
	log  zerolog.Logger
}

// NewTransport creates a Pulsar transport
func NewTransport(opts Options, log zerolog.Logger) *Transport {
	if opts.ReceiveWindow <= 0 {
		opts.ReceiveWindow = DefaultReceiveWindow
	}
	return &Transport{opts: opts, log: log}
}

// Connect implements backends.Transport. The Pulsar client dials lazily, so a
// topic metadata lookup proves the broker answers. The queue manager name only
// labels the session.
func (t *Transport) Connect(ctx context.Context, opts backends.ConnectOptions) (backends.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server := ServerURL(opts, t.opts.TLS != nil)
	log := t.log.With().Str("server", server).Str("qmgr", opts.QueueManager).Logger()

	client, err := Connect(server, opts.User, opts.Password, t.opts.TLS, log)
	if err != nil {
		return nil, err
	}

	if _, err := client.TopicPartitions(queueTopic(connectCheckTopic)); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Pulsar at %s: %w", server, err)
	}
	log.Debug().Msg("pulsar client ready")

	return &session{client: client, window: t.opts.ReceiveWindow, log: log}, nil
}

// ServerURL builds pulsar://host:port, or pulsar+ssl:// when secure is set
func ServerURL(opts backends.ConnectOptions, secure bool) string {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	scheme := "pulsar"
	if secure {
		scheme = "pulsar+ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Connect creates a Pulsar client. A user selects basic authentication; a
// password alone is sent as a token.
func Connect(server, user, password string, tlsConfig *tls.Config, log zerolog.Logger) (pulsarclient.Client, error) {
	opts := pulsarclient.ClientOptions{
		URL:               server,
		OperationTimeout:  operationTimeout,
		ConnectionTimeout: operationTimeout,
		TLSConfig:         tlsConfig,
		Logger:            newLogAdapter(log),
	}

	auth, err := authentication(user, password)
	if err != nil {
		return nil, err
	}
	opts.Authentication = auth

	client, err := pulsarclient.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to Pulsar at %s: %w", server, err)
	}
	return client, nil
}

func authentication(user, password string) (pulsarclient.Authentication, error) {
	switch {
	case user != "":
		auth, err := pulsarclient.NewAuthenticationBasic(user, password)
		if err != nil {
			return nil, fmt.Errorf("building basic authentication: %w", err)
		}
		return auth, nil
	case password != "":
		return pulsarclient.NewAuthenticationToken(password), nil
	default:
		return nil, nil
	}
}

func queueTopic(queue string) string {
	return fmt.Sprintf("persistent://public/default/%s", queue)
}

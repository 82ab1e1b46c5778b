package broker

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/amqp"
	"github.com/makibytes/mqk/broker/backends"
	"github.com/makibytes/mqk/broker/memory"
	"github.com/makibytes/mqk/broker/nats"
	"github.com/makibytes/mqk/broker/pulsar"
	"github.com/makibytes/mqk/config"
)

// TransportFactory builds a transport from the resolved connection settings
type TransportFactory func(conn config.Connection, log zerolog.Logger) (backends.Transport, error)

var (
	mu         sync.RWMutex
	transports = map[string]TransportFactory{}
)

// Register makes a transport available under name. Registering a name twice
// replaces the earlier factory.
func Register(name string, factory TransportFactory) {
	mu.Lock()
	defer mu.Unlock()
	transports[name] = factory
}

// Lookup returns the factory registered under name
func Lookup(name string) (TransportFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := transports[name]
	if !ok {
		return nil, fmt.Errorf("unknown transport %q (known: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return factory, nil
}

// Names returns the registered transport names in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultTransport is used when neither configuration nor flags name one
const DefaultTransport = "ibmmq"

// NewTransport resolves conn.Transport, falling back to DefaultTransport
func NewTransport(conn config.Connection, log zerolog.Logger) (backends.Transport, error) {
	name := conn.Transport
	if name == "" {
		name = DefaultTransport
	}
	factory, err := Lookup(name)
	if err != nil {
		if conn.Transport == "" {
			return nil, fmt.Errorf("no transport selected: build with -tags ibmmq or pass --transport: %w", err)
		}
		return nil, err
	}
	return factory(conn, log.With().Str("transport", name).Logger())
}

// memoryBroker is shared by every memory session in the process, so one run
// can put and get against the same queues.
var memoryBroker = memory.New()

func init() {
	Register("memory", func(config.Connection, zerolog.Logger) (backends.Transport, error) {
		return memoryBroker, nil
	})

	Register("amqp", func(conn config.Connection, log zerolog.Logger) (backends.Transport, error) {
		tlsConfig, err := conn.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("TLS configuration error: %w", err)
		}
		return amqp.NewTransport(amqp.Options{TLS: tlsConfig}, log), nil
	})

	Register("nats", func(conn config.Connection, log zerolog.Logger) (backends.Transport, error) {
		tlsConfig, err := conn.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("building TLS config: %w", err)
		}
		return nats.NewTransport(nats.Options{TLS: tlsConfig}, log), nil
	})

	Register("pulsar", func(conn config.Connection, log zerolog.Logger) (backends.Transport, error) {
		tlsConfig, err := conn.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("building TLS config: %w", err)
		}
		return pulsar.NewTransport(pulsar.Options{TLS: tlsConfig}, log), nil
	})
}

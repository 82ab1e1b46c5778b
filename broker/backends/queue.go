package backends

import "context"

// ConnectOptions contains everything a transport needs to open a session
type ConnectOptions struct {
	QueueManager   string
	Channel        string
	Host           string
	Port           int
	ConnectionName string // host(port), as IBM MQ expects it

	// Credentials are optional; an empty User means an unauthenticated session
	User     string
	Password string
}

// OpenMode selects how a queue handle is opened
type OpenMode int

const (
	OpenInput  OpenMode = iota // destructive get
	OpenOutput                 // put
)

func (m OpenMode) String() string {
	switch m {
	case OpenInput:
		return "input"
	case OpenOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Transport connects to a queue manager
type Transport interface {
	// Connect opens a new session
	Connect(ctx context.Context, opts ConnectOptions) (Session, error)
}

// Session is one live connection to a queue manager
type Session interface {
	// OpenQueue opens a handle on a named queue
	OpenQueue(ctx context.Context, name string, mode OpenMode) (Queue, error)

	// Disconnect closes the session
	Disconnect() error
}

// Queue is a handle on a named queue, scoped to a single operation
type Queue interface {
	// Get removes the next message without waiting. ok is false and err is nil
	// when the queue has no message available.
	Get(ctx context.Context) (data []byte, ok bool, err error)

	// Put submits one message
	Put(ctx context.Context, data []byte) error

	// Close releases the handle
	Close() error
}

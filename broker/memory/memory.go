// Package memory is an in-process queue manager. It implements the transport
// contract with FIFO queues held in memory, and lets tests inject failures.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/makibytes/mqk/broker/backends"
)

var (
	ErrNoQueueManager = errors.New("queue manager name required")
	ErrSessionClosed  = errors.New("session is closed")
	ErrHandleClosed   = errors.New("queue handle is closed")
	ErrWrongMode      = errors.New("queue handle not opened for this operation")
)

// Broker holds the queues of one in-memory queue manager. It is safe for use by
// several sessions at once.
type Broker struct {
	mu           sync.Mutex
	queues       map[string][][]byte
	faults       map[string]*fault
	connectErr   error
	lastConnect  backends.ConnectOptions
	openSessions int
}

type fault struct {
	after int // successful gets before err is returned
	err   error
}

// New creates an empty broker
func New() *Broker {
	return &Broker{
		queues: make(map[string][][]byte),
		faults: make(map[string]*fault),
	}
}

// Connect implements backends.Transport
func (b *Broker) Connect(ctx context.Context, opts backends.ConnectOptions) (backends.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastConnect = opts
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	if opts.QueueManager == "" {
		return nil, ErrNoQueueManager
	}

	b.openSessions++
	return &session{broker: b}, nil
}

// FailConnect makes every following Connect return err; nil clears it
func (b *Broker) FailConnect(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectErr = err
}

// FailQueue makes the queue return err after `after` successful gets. Opening
// the queue for output and putting to it fail immediately.
func (b *Broker) FailQueue(name string, after int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[name] = &fault{after: after, err: err}
}

// Enqueue appends text messages to a queue
func (b *Broker) Enqueue(name string, messages ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range messages {
		b.queues[name] = append(b.queues[name], []byte(m))
	}
}

// Depth returns the number of messages on a queue
func (b *Broker) Depth(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[name])
}

// Messages returns a copy of the queued payloads as text, oldest first
func (b *Broker) Messages(name string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.queues[name]))
	for _, m := range b.queues[name] {
		out = append(out, string(m))
	}
	return out
}

// LastConnect returns the options of the most recent Connect call
func (b *Broker) LastConnect() backends.ConnectOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastConnect
}

// OpenSessions returns the number of sessions not yet disconnected
func (b *Broker) OpenSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openSessions
}

// session and queue flags are guarded by broker.mu
type session struct {
	broker *Broker
	closed bool
}

func (s *session) OpenQueue(ctx context.Context, name string, mode backends.OpenMode) (backends.Queue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("open queue: empty queue name")
	}

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if f, ok := b.faults[name]; ok && mode == backends.OpenOutput {
		return nil, f.err
	}

	return &queue{session: s, name: name, mode: mode}, nil
}

func (s *session) Disconnect() error {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	b.openSessions--
	return nil
}

type queue struct {
	session *session
	name    string
	mode    backends.OpenMode
	closed  bool
}

func (q *queue) Get(ctx context.Context) ([]byte, bool, error) {
	b := q.session.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := q.usableLocked(ctx, backends.OpenInput); err != nil {
		return nil, false, err
	}

	if f, ok := b.faults[q.name]; ok {
		if f.after <= 0 {
			return nil, false, f.err
		}
		f.after--
	}

	msgs := b.queues[q.name]
	if len(msgs) == 0 {
		return nil, false, nil
	}
	b.queues[q.name] = msgs[1:]
	return msgs[0], true, nil
}

func (q *queue) Put(ctx context.Context, data []byte) error {
	b := q.session.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := q.usableLocked(ctx, backends.OpenOutput); err != nil {
		return err
	}
	if f, ok := b.faults[q.name]; ok {
		return f.err
	}

	msg := make([]byte, len(data))
	copy(msg, data)
	b.queues[q.name] = append(b.queues[q.name], msg)
	return nil
}

func (q *queue) Close() error {
	b := q.session.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.closed {
		return ErrHandleClosed
	}
	q.closed = true
	return nil
}

// usableLocked must be called with broker.mu held
func (q *queue) usableLocked(ctx context.Context, mode backends.OpenMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.closed {
		return ErrHandleClosed
	}
	if q.session.closed {
		return ErrSessionClosed
	}
	if q.mode != mode {
		return fmt.Errorf("%w: %s", ErrWrongMode, q.mode)
	}
	return nil
}

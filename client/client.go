// Package client is the queue client facade: one session to a queue manager and the
// put, get and purge operations performed over it.
package client

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
	"github.com/makibytes/mqk/config"
)

// Separator joins payloads when a queue is drained into one result.
const Separator = ", "

// ConnectParams overrides the configured connection defaults for one connect
// call. Zero values fall back to the defaults.
type ConnectParams struct {
	QueueManager string
	Channel      string
	Host         string
	Port         int
}

// Client holds at most one session. It is meant for sequential use by a single
// caller; use one Client per goroutine.
type Client struct {
	transport backends.Transport
	defaults  config.Connection
	conn      config.Connection
	session   backends.Session
	log       zerolog.Logger
}

// New creates a disconnected client. defaults may be empty, in which case every
// connect call must supply its own parameters.
func New(defaults config.Connection, transport backends.Transport, log zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		defaults:  defaults,
		conn:      defaults,
		log:       log,
	}
}

// Connected reports whether a session is open.
func (c *Client) Connected() bool {
	return c.session != nil
}

// ConnectionConfig returns the parameters of the current or last session, or the
// defaults before the first connect.
func (c *Client) ConnectionConfig() config.Connection {
	return c.conn
}

// Connect opens an unauthenticated session. An open session is disconnected first.
func (c *Client) Connect(ctx context.Context, p ConnectParams) error {
	return c.connect(ctx, "Connect", p, "", "")
}

// ConnectWithCredentials opens a session authenticated with user and password.
// An open session is disconnected first.
func (c *Client) ConnectWithCredentials(ctx context.Context, user, password string, p ConnectParams) error {
	if user == "" {
		return connectionError("ConnectWithCredentials", errors.New("user name required"))
	}
	return c.connect(ctx, "ConnectWithCredentials", p, user, password)
}

func (c *Client) connect(ctx context.Context, op string, p ConnectParams, user, password string) error {
	conn := c.resolve(p)
	conn.User = user
	conn.Password = password

	log := c.log.With().
		Str("op", op).
		Str("qmgr", conn.QueueManager).
		Str("channel", conn.Channel).
		Str("conn_name", conn.ConnectionName()).
		Logger()

	if c.session != nil {
		log.Info().Msg("disconnecting previous session before reconnect")
		if err := c.session.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("previous session did not disconnect cleanly, dropping it")
		}
		c.session = nil
	}

	log.Info().Bool("authenticated", user != "").Msg("connecting to queue manager")

	session, err := c.transport.Connect(ctx, backends.ConnectOptions{
		QueueManager:   conn.QueueManager,
		Channel:        conn.Channel,
		Host:           conn.Host,
		Port:           conn.Port,
		ConnectionName: conn.ConnectionName(),
		User:           user,
		Password:       password,
	})
	if err != nil {
		log.Error().Err(err).Msg("connect failed")
		return connectionError(op, err)
	}

	c.session = session
	c.conn = conn
	log.Info().Msg("connection established")
	return nil
}

func (c *Client) resolve(p ConnectParams) config.Connection {
	conn := c.defaults
	if p.QueueManager != "" {
		conn.QueueManager = p.QueueManager
	}
	if p.Channel != "" {
		conn.Channel = p.Channel
	}
	if p.Host != "" {
		conn.Host = p.Host
	}
	if p.Port != 0 {
		conn.Port = p.Port
	}
	return conn
}

// Disconnect closes the session.
func (c *Client) Disconnect() error {
	const op = "Disconnect"
	if c.session == nil {
		return connectionError(op, ErrNotConnected)
	}

	c.log.Debug().Str("op", op).Str("qmgr", c.conn.QueueManager).Msg("disconnecting")
	session := c.session
	c.session = nil
	if err := session.Disconnect(); err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("disconnect failed")
		return connectionError(op, err)
	}

	c.log.Info().Str("op", op).Str("qmgr", c.conn.QueueManager).Msg("disconnected")
	return nil
}

// PurgeQueue removes every message from the queue and returns how many were
// removed. On failure no count is reported.
func (c *Client) PurgeQueue(ctx context.Context, queue string) (int, error) {
	const op = "PurgeQueue"
	c.log.Debug().Str("op", op).Str("queue", queue).Msg("start")

	n, err := c.drain(ctx, op, queue, func([]byte) error { return nil })
	if err != nil {
		return 0, err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Int("count", n).Msg("queue purged")
	return n, nil
}

// PutMessage puts the text payload onto the queue.
func (c *Client) PutMessage(ctx context.Context, payload, queue string) error {
	const op = "PutMessage"
	c.log.Debug().Str("op", op).Str("queue", queue).Int("bytes", len(payload)).Msg("start")

	if err := c.put(ctx, op, queue, []byte(payload)); err != nil {
		return err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Msg("message put")
	return nil
}

// PutMessageFromFile puts the whole content of the file as one message. File
// errors are returned as they come from the os package.
func (c *Client) PutMessageFromFile(ctx context.Context, path, queue string) error {
	const op = "PutMessageFromFile"
	c.log.Debug().Str("op", op).Str("queue", queue).Str("path", path).Msg("start")

	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Str("path", path).Msg("reading message file failed")
		return err
	}

	if err := c.put(ctx, op, queue, data); err != nil {
		return err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Str("path", path).Int("bytes", len(data)).Msg("message put")
	return nil
}

// GetMessage takes the next message off the queue. ok is false when the queue is
// empty, which is not an error.
func (c *Client) GetMessage(ctx context.Context, queue string) (msg string, ok bool, err error) {
	const op = "GetMessage"
	c.log.Debug().Str("op", op).Str("queue", queue).Msg("start")

	data, ok, err := c.getOne(ctx, op, queue)
	if err != nil {
		return "", false, err
	}
	if !ok {
		c.log.Info().Str("op", op).Str("queue", queue).Msg("no message available")
		return "", false, nil
	}

	c.log.Info().Str("op", op).Str("queue", queue).Int("bytes", len(data)).Msg("message received")
	return string(data), true, nil
}

// GetAllMessages drains the queue and returns the payloads joined by Separator,
// oldest first. An empty queue yields an empty string.
func (c *Client) GetAllMessages(ctx context.Context, queue string) (string, error) {
	const op = "GetAllMessages"
	c.log.Debug().Str("op", op).Str("queue", queue).Msg("start")

	var sb strings.Builder
	out := &separatedWriter{w: &sb}
	n, err := c.drain(ctx, op, queue, out.write)
	if err != nil {
		return "", err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Int("count", n).Msg("queue drained")
	return sb.String(), nil
}

// GetMessageIntoFile takes the next message off the queue and writes it to path.
// The file is truncated before the get, so an empty queue leaves an empty file.
func (c *Client) GetMessageIntoFile(ctx context.Context, queue, path string) (err error) {
	const op = "GetMessageIntoFile"
	c.log.Debug().Str("op", op).Str("queue", queue).Str("path", path).Msg("start")

	if err := c.requireSession(op); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	data, ok, err := c.getOne(ctx, op, queue)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Info().Str("op", op).Str("queue", queue).Str("path", path).Msg("no message available, file left empty")
		return nil
	}

	if _, err := f.Write(data); err != nil {
		return err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Str("path", path).Int("bytes", len(data)).Msg("message written")
	return nil
}

// GetAllMessagesIntoFile drains the queue into path, payloads separated by
// Separator. The file is truncated first; an empty queue leaves it empty.
func (c *Client) GetAllMessagesIntoFile(ctx context.Context, queue, path string) (err error) {
	const op = "GetAllMessagesIntoFile"
	c.log.Debug().Str("op", op).Str("queue", queue).Str("path", path).Msg("start")

	if err := c.requireSession(op); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	out := &separatedWriter{w: f}
	n, err := c.drain(ctx, op, queue, out.write)
	if err != nil {
		return err
	}

	c.log.Info().Str("op", op).Str("queue", queue).Str("path", path).Int("count", n).Msg("queue drained into file")
	return nil
}

func (c *Client) requireSession(op string) error {
	if c.session == nil {
		c.log.Error().Str("op", op).Msg("no open session")
		return connectionError(op, ErrNotConnected)
	}
	return nil
}

func (c *Client) openQueue(ctx context.Context, op, name string, mode backends.OpenMode) (backends.Queue, error) {
	if err := c.requireSession(op); err != nil {
		return nil, err
	}

	q, err := c.session.OpenQueue(ctx, name, mode)
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Str("queue", name).Stringer("mode", mode).Msg("open queue failed")
		return nil, transportError(op, err)
	}
	return q, nil
}

func (c *Client) closeQueue(op, name string, q backends.Queue) {
	if err := q.Close(); err != nil {
		c.log.Warn().Err(err).Str("op", op).Str("queue", name).Msg("closing queue handle failed")
	}
}

func (c *Client) put(ctx context.Context, op, queue string, data []byte) error {
	q, err := c.openQueue(ctx, op, queue, backends.OpenOutput)
	if err != nil {
		return err
	}
	defer c.closeQueue(op, queue, q)

	if err := q.Put(ctx, data); err != nil {
		c.log.Error().Err(err).Str("op", op).Str("queue", queue).Msg("put failed")
		return transportError(op, err)
	}
	return nil
}

func (c *Client) getOne(ctx context.Context, op, queue string) ([]byte, bool, error) {
	q, err := c.openQueue(ctx, op, queue, backends.OpenInput)
	if err != nil {
		return nil, false, err
	}
	defer c.closeQueue(op, queue, q)

	data, ok, err := q.Get(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Str("queue", queue).Msg("get failed")
		return nil, false, transportError(op, err)
	}
	return data, ok, nil
}

// drain gets messages until the queue reports none available, passing each
// payload to fn, and returns the number of messages taken.
func (c *Client) drain(ctx context.Context, op, queue string, fn func([]byte) error) (int, error) {
	q, err := c.openQueue(ctx, op, queue, backends.OpenInput)
	if err != nil {
		return 0, err
	}
	defer c.closeQueue(op, queue, q)

	n := 0
	for {
		data, ok, err := q.Get(ctx)
		if err != nil {
			c.log.Error().Err(err).Str("op", op).Str("queue", queue).Int("count", n).Msg("get failed")
			return n, transportError(op, err)
		}
		if !ok {
			return n, nil
		}
		n++
		if err := fn(data); err != nil {
			return n, err
		}
	}
}

// separatedWriter writes payloads to w with Separator between them.
type separatedWriter struct {
	w io.Writer
	n int
}

func (s *separatedWriter) write(data []byte) error {
	if s.n > 0 {
		if _, err := io.WriteString(s.w, Separator); err != nil {
			return err
		}
	}
	s.n++
	_, err := s.w.Write(data)
	return err
}

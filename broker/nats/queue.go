package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	natsclient "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

// consumerName is the durable pull consumer shared by every input handle
const consumerName = "mqk-consumer"

type session struct {
	nc   *natsclient.Conn
	js   natsclient.JetStreamContext
	wait time.Duration
	log  zerolog.Logger
}

func (s *session) OpenQueue(ctx context.Context, name string, mode backends.OpenMode) (backends.Queue, error) {
	if err := s.ensureStream(ctx, name); err != nil {
		return nil, err
	}

	switch mode {
	case backends.OpenInput:
		sub, err := s.js.PullSubscribe(queueSubject(name), consumerName,
			natsclient.BindStream(streamName(name)),
		)
		if err != nil {
			return nil, fmt.Errorf("creating pull subscriber: %w", err)
		}
		return &inputQueue{sub: sub, wait: s.wait}, nil

	case backends.OpenOutput:
		return &outputQueue{js: s.js, subject: queueSubject(name)}, nil

	default:
		return nil, fmt.Errorf("unsupported open mode %s", mode)
	}
}

func (s *session) Disconnect() error {
	s.nc.Close()
	return nil
}

// ensureStream creates the work-queue stream backing a queue on first use
func (s *session) ensureStream(ctx context.Context, queue string) error {
	name := streamName(queue)

	_, err := s.js.StreamInfo(name, natsclient.Context(ctx))
	if err == nil {
		return nil
	}
	if !errors.Is(err, natsclient.ErrStreamNotFound) {
		return fmt.Errorf("checking stream %s: %w", name, err)
	}

	s.log.Debug().Str("stream", name).Msg("creating work-queue stream")
	_, err = s.js.AddStream(&natsclient.StreamConfig{
		Name:      name,
		Subjects:  []string{queueSubject(queue)},
		Retention: natsclient.WorkQueuePolicy,
	}, natsclient.Context(ctx))
	if err != nil {
		return fmt.Errorf("creating stream %s: %w", name, err)
	}

	return nil
}

type inputQueue struct {
	sub  *natsclient.Subscription
	wait time.Duration
}

func (q *inputQueue) Get(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	msgs, err := q.sub.Fetch(1, natsclient.MaxWait(q.wait))
	if err != nil {
		if errors.Is(err, natsclient.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(msgs) == 0 {
		return nil, false, nil
	}

	m := msgs[0]
	if err := m.AckSync(natsclient.Context(ctx)); err != nil {
		return nil, false, fmt.Errorf("acknowledging message: %w", err)
	}
	return m.Data, true, nil
}

func (q *inputQueue) Put(context.Context, []byte) error {
	return errors.New("queue handle opened for input")
}

func (q *inputQueue) Close() error {
	return q.sub.Unsubscribe()
}

type outputQueue struct {
	js      natsclient.JetStreamContext
	subject string
}

func (q *outputQueue) Get(context.Context) ([]byte, bool, error) {
	return nil, false, errors.New("queue handle opened for output")
}

func (q *outputQueue) Put(ctx context.Context, data []byte) error {
	_, err := q.js.Publish(q.subject, data, natsclient.Context(ctx))
	return err
}

func (q *outputQueue) Close() error {
	return nil
}

// streamName returns the JetStream stream name for a queue. Stream names may not
// contain dots, so every byte outside [A-Za-z0-9] is written as _XX hex. The
// mapping keeps case and is one to one.
func streamName(queue string) string {
	return "MQK_Q_" + escapeName(queue)
}

// queueSubject returns the NATS subject for a queue as a single token.
func queueSubject(queue string) string {
	return "mqk.queue." + escapeName(queue)
}

func escapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "_%02X", c)
	}
	return b.String()
}

package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqpclient "github.com/Azure/go-amqp"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

// queueCapability asks brokers like Artemis for anycast routing
var queueCapability = []string{"queue"}

type session struct {
	conn   *amqpclient.Conn
	sess   *amqpclient.Session
	window time.Duration
	log    zerolog.Logger
}

func (s *session) OpenQueue(ctx context.Context, name string, mode backends.OpenMode) (backends.Queue, error) {
	s.log.Debug().Str("queue", name).Stringer("mode", mode).Msg("attaching link")

	switch mode {
	case backends.OpenInput:
		receiver, err := s.sess.NewReceiver(ctx, name, &amqpclient.ReceiverOptions{
			SourceCapabilities: queueCapability,
			Credit:             1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open receiver on %s: %w", name, err)
		}
		return &receiverQueue{receiver: receiver, window: s.window}, nil

	case backends.OpenOutput:
		sender, err := s.sess.NewSender(ctx, name, &amqpclient.SenderOptions{
			TargetCapabilities: queueCapability,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sender on %s: %w", name, err)
		}
		return &senderQueue{sender: sender}, nil

	default:
		return nil, fmt.Errorf("unsupported open mode %s", mode)
	}
}

func (s *session) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	sessErr := s.sess.Close(ctx)
	connErr := s.conn.Close()
	return errors.Join(sessErr, connErr)
}

const closeTimeout = 5 * time.Second

// receiverQueue is an input handle. Unsettled messages still in the link
// credit are released back to the queue when the receiver closes.
type receiverQueue struct {
	receiver *amqpclient.Receiver
	window   time.Duration
}

func (q *receiverQueue) Get(ctx context.Context) ([]byte, bool, error) {
	wctx, cancel := context.WithTimeout(ctx, q.window)
	defer cancel()

	msg, err := q.receiver.Receive(wctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := q.receiver.AcceptMessage(ctx, msg); err != nil {
		return nil, false, fmt.Errorf("failed to accept message: %w", err)
	}
	return payload(msg), true, nil
}

func (q *receiverQueue) Put(context.Context, []byte) error {
	return errors.New("queue handle opened for input")
}

func (q *receiverQueue) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return q.receiver.Close(ctx)
}

type senderQueue struct {
	sender *amqpclient.Sender
}

func (q *senderQueue) Get(context.Context) ([]byte, bool, error) {
	return nil, false, errors.New("queue handle opened for output")
}

func (q *senderQueue) Put(ctx context.Context, data []byte) error {
	msg := amqpclient.NewMessage(data)
	msg.Header = &amqpclient.MessageHeader{Durable: true}
	return q.sender.Send(ctx, msg, nil)
}

func (q *senderQueue) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return q.sender.Close(ctx)
}

// payload returns the message body. Data sections are concatenated; an
// AmqpValue body is accepted when it carries a string or binary.
func payload(msg *amqpclient.Message) []byte {
	if len(msg.Data) > 0 {
		if len(msg.Data) == 1 {
			return msg.Data[0]
		}
		var out []byte
		for _, d := range msg.Data {
			out = append(out, d...)
		}
		return out
	}
	switch v := msg.Value.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	}
	return nil
}

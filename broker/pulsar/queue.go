package pulsar

import (
	"context"
	"errors"
	"fmt"
	"time"

	pulsarclient "github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

// queueSubscription is shared by every mqk consumer of a queue
const queueSubscription = "mqk-queue"

type session struct {
	client pulsarclient.Client
	window time.Duration
	log    zerolog.Logger
}

func (s *session) OpenQueue(_ context.Context, name string, mode backends.OpenMode) (backends.Queue, error) {
	topic := queueTopic(name)
	s.log.Debug().Str("queue", name).Str("topic", topic).Stringer("mode", mode).Msg("opening topic")

	switch mode {
	case backends.OpenInput:
		consumer, err := s.subscribe(topic)
		if err != nil {
			return nil, err
		}
		return &consumerQueue{consumer: consumer, window: s.window}, nil

	case backends.OpenOutput:
		// without a subscription the broker does not keep what we publish
		consumer, err := s.subscribe(topic)
		if err != nil {
			return nil, err
		}
		consumer.Close()

		producer, err := s.client.CreateProducer(pulsarclient.ProducerOptions{Topic: topic})
		if err != nil {
			return nil, fmt.Errorf("creating producer for %s: %w", topic, err)
		}
		return &producerQueue{producer: producer}, nil

	default:
		return nil, fmt.Errorf("unsupported open mode %s", mode)
	}
}

func (s *session) subscribe(topic string) (pulsarclient.Consumer, error) {
	consumer, err := s.client.Subscribe(pulsarclient.ConsumerOptions{
		Topic:                       topic,
		SubscriptionName:            queueSubscription,
		Type:                        pulsarclient.Shared,
		SubscriptionInitialPosition: pulsarclient.SubscriptionPositionEarliest,
		ReceiverQueueSize:           1,
		AckWithResponse:             true,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return consumer, nil
}

func (s *session) Disconnect() error {
	s.client.Close()
	return nil
}

// consumerQueue is an input handle. Messages prefetched but not acknowledged
// go back to the subscription when the consumer closes.
type consumerQueue struct {
	consumer pulsarclient.Consumer
	window   time.Duration
}

func (q *consumerQueue) Get(ctx context.Context) ([]byte, bool, error) {
	wctx, cancel := context.WithTimeout(ctx, q.window)
	defer cancel()

	msg, err := q.consumer.Receive(wctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := q.consumer.Ack(msg); err != nil {
		return nil, false, fmt.Errorf("acknowledging message: %w", err)
	}
	return msg.Payload(), true, nil
}

func (q *consumerQueue) Put(context.Context, []byte) error {
	return errors.New("queue handle opened for input")
}

func (q *consumerQueue) Close() error {
	q.consumer.Close()
	return nil
}

type producerQueue struct {
	producer pulsarclient.Producer
}

func (q *producerQueue) Get(context.Context) ([]byte, bool, error) {
	return nil, false, errors.New("queue handle opened for output")
}

func (q *producerQueue) Put(ctx context.Context, data []byte) error {
	_, err := q.producer.Send(ctx, &pulsarclient.ProducerMessage{Payload: data})
	return err
}

func (q *producerQueue) Close() error {
	q.producer.Close()
	return nil
}

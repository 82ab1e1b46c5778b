//go:build ibmmq

package ibmmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibm-messaging/mq-golang/v5/ibmmq"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

// initialBufferSize is the starting get buffer; larger messages grow it
const initialBufferSize = 64 * 1024

type session struct {
	qMgr ibmmq.MQQueueManager
	log  zerolog.Logger
}

// OpenQueue implements backends.Session
func (s *session) OpenQueue(_ context.Context, name string, mode backends.OpenMode) (backends.Queue, error) {
	mqod := ibmmq.NewMQOD()
	mqod.ObjectType = ibmmq.MQOT_Q
	mqod.ObjectName = name

	var openOptions int32
	switch mode {
	case backends.OpenInput:
		openOptions = ibmmq.MQOO_INPUT_AS_Q_DEF | ibmmq.MQOO_FAIL_IF_QUIESCING
	case backends.OpenOutput:
		openOptions = ibmmq.MQOO_OUTPUT | ibmmq.MQOO_FAIL_IF_QUIESCING
	default:
		return nil, fmt.Errorf("unsupported open mode %d", mode)
	}

	s.log.Debug().Str("queue", name).Stringer("mode", mode).Msg("opening queue")
	qObject, err := s.qMgr.Open(mqod, openOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	return &queue{
		qObject: qObject,
		name:    name,
		log:     s.log,
	}, nil
}

// Disconnect implements backends.Session
func (s *session) Disconnect() error {
	return s.qMgr.Disc()
}

type queue struct {
	qObject ibmmq.MQObject
	name    string
	buffer  []byte
	log     zerolog.Logger
}

// Get implements backends.Queue with a no-wait destructive get. Payloads are
// returned as stored; no code page conversion is requested.
func (q *queue) Get(_ context.Context) ([]byte, bool, error) {
	if q.buffer == nil {
		q.buffer = make([]byte, 0, initialBufferSize)
	}

	for {
		md := ibmmq.NewMQMD()
		gmo := ibmmq.NewMQGMO()
		gmo.Options = ibmmq.MQGMO_NO_SYNCPOINT | ibmmq.MQGMO_NO_WAIT | ibmmq.MQGMO_FAIL_IF_QUIESCING

		buffer, datalen, err := q.qObject.GetSlice(md, gmo, q.buffer)
		switch classifyGet(err) {
		case getDelivered:
			if err != nil {
				// the message is already off the queue, so a warning still delivers it
				q.log.Warn().Err(err).Str("queue", q.name).Msg("message delivered with warning")
			}
			return append([]byte(nil), buffer...), true, nil
		case getEmpty:
			return nil, false, nil
		case getTooSmall:
			// message stays on the queue; retry with a buffer that fits it
			q.log.Debug().Str("queue", q.name).Int("length", datalen).Msg("growing get buffer")
			q.buffer = make([]byte, 0, datalen)
		default:
			return nil, false, fmt.Errorf("failed to get message: %w", err)
		}
	}
}

type getResult int

const (
	getFailed getResult = iota
	getDelivered
	getEmpty
	getTooSmall
)

// classifyGet maps the outcome of an MQGET. Any other warning completion has
// already removed the message and counts as delivered.
func classifyGet(err error) getResult {
	if err == nil {
		return getDelivered
	}

	var mqret *ibmmq.MQReturn
	if !errors.As(err, &mqret) {
		return getFailed
	}

	switch {
	case mqret.MQRC == ibmmq.MQRC_NO_MSG_AVAILABLE:
		return getEmpty
	case mqret.MQRC == ibmmq.MQRC_TRUNCATED_MSG_FAILED:
		return getTooSmall
	case mqret.MQCC == ibmmq.MQCC_WARNING:
		return getDelivered
	default:
		return getFailed
	}
}

// Put implements backends.Queue
func (q *queue) Put(_ context.Context, data []byte) error {
	pmo := ibmmq.NewMQPMO()
	pmo.Options = ibmmq.MQPMO_NO_SYNCPOINT | ibmmq.MQPMO_NEW_MSG_ID | ibmmq.MQPMO_FAIL_IF_QUIESCING

	md := ibmmq.NewMQMD()
	md.Format = ibmmq.MQFMT_STRING

	q.log.Debug().Str("queue", q.name).Int("bytes", len(data)).Msg("putting message")
	if err := q.qObject.Put(md, pmo, data); err != nil {
		return fmt.Errorf("failed to put message: %w", err)
	}
	return nil
}

// Close implements backends.Queue
func (q *queue) Close() error {
	return q.qObject.Close(0)
}

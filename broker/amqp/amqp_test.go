package amqp

import (
	"testing"

	amqpclient "github.com/Azure/go-amqp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/makibytes/mqk/broker/backends"
)

func TestServerURL(t *testing.T) {
	tests := []struct {
		name   string
		opts   backends.ConnectOptions
		secure bool
		want   string
	}{
		{name: "defaults", want: "amqp://localhost:5672"},
		{name: "host and port", opts: backends.ConnectOptions{Host: "broker", Port: 5673}, want: "amqp://broker:5673"},
		{name: "tls", opts: backends.ConnectOptions{Host: "broker"}, secure: true, want: "amqps://broker:5672"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServerURL(tt.opts, tt.secure))
		})
	}
}

func TestNewTransport_DefaultWindow(t *testing.T) {
	tr := NewTransport(Options{}, zerolog.Nop())
	assert.Equal(t, DefaultReceiveWindow, tr.opts.ReceiveWindow)

	tr = NewTransport(Options{ReceiveWindow: DefaultReceiveWindow * 4}, zerolog.Nop())
	assert.Equal(t, DefaultReceiveWindow*4, tr.opts.ReceiveWindow)
}

func TestPayload(t *testing.T) {
	assert.Equal(t, []byte("one"), payload(amqpclient.NewMessage([]byte("one"))))
	assert.Equal(t, []byte("ab"), payload(&amqpclient.Message{Data: [][]byte{[]byte("a"), []byte("b")}}))
	assert.Equal(t, []byte("text"), payload(&amqpclient.Message{Value: "text"}))
	assert.Equal(t, []byte("bin"), payload(&amqpclient.Message{Value: []byte("bin")}))
	assert.Nil(t, payload(&amqpclient.Message{Value: int64(7)}))
}

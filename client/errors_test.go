package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "connection",
			err:  connectionError("Connect", errors.New("MQRC_NOT_AUTHORIZED")),
			want: "[Connect] connection error: MQRC_NOT_AUTHORIZED",
		},
		{
			name: "transport",
			err:  transportError("GetMessage", errors.New("MQRC_UNKNOWN_OBJECT_NAME")),
			want: "[GetMessage] transport error: MQRC_UNKNOWN_OBJECT_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Classification(t *testing.T) {
	t.Parallel()
	cause := errors.New("cause")

	conn := connectionError("Disconnect", cause)
	assert.True(t, IsConnectionError(conn))
	assert.False(t, IsTransportError(conn))
	assert.ErrorIs(t, conn, cause)

	wrapped := fmt.Errorf("keyword failed: %w", transportError("PutMessage", cause))
	assert.True(t, IsTransportError(wrapped))
	assert.False(t, IsConnectionError(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.False(t, IsConnectionError(cause))
	assert.False(t, IsTransportError(nil))
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "connection", KindConnection.String())
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

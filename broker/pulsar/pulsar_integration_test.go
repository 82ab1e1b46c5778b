//go:build integration

package pulsar

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makibytes/mqk/client"
	"github.com/makibytes/mqk/config"
	"github.com/makibytes/mqk/test/integration"
)

var testConn config.Connection

func TestMain(m *testing.M) {
	ctx := context.Background()
	broker, err := integration.StartPulsar(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start Pulsar: %v\n", err)
		os.Exit(1)
	}
	defer broker.Terminate(ctx)

	u, err := url.Parse(broker.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse Pulsar URL %q: %v\n", broker.URL, err)
		os.Exit(1)
	}
	port, _ := strconv.Atoi(u.Port())
	testConn = config.Connection{QueueManager: "pulsar", Host: u.Hostname(), Port: port}

	// standalone Pulsar accepts TCP well before topic lookups work
	err = integration.WaitForBroker(func() error {
		c := newClient()
		if err := c.Connect(ctx, client.ConnectParams{}); err != nil {
			return err
		}
		return c.Disconnect()
	}, 60*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pulsar not ready: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func newClient() *client.Client {
	return client.New(testConn, NewTransport(Options{}, zerolog.Nop()), zerolog.Nop())
}

func connected(t *testing.T) *client.Client {
	t.Helper()
	c := newClient()
	require.NoError(t, c.Connect(context.Background(), client.ConnectParams{}))
	t.Cleanup(func() { c.Disconnect() }) //nolint:errcheck
	return c
}

func randomQueue() string { return fmt.Sprintf("mqk-test-%d", rand.Int63()) }

func TestPulsar_PutGetRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := connected(t)
	queue := randomQueue()

	require.NoError(t, c.PutMessage(ctx, "hello-pulsar", queue))

	got, ok, err := c.GetMessage(ctx, queue)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello-pulsar", got)

	_, ok, err = c.GetMessage(ctx, queue)
	require.NoError(t, err)
	assert.False(t, ok, "message was consumed")
}

func TestPulsar_GetEmptyQueue(t *testing.T) {
	t.Parallel()
	c := connected(t)

	_, ok, err := c.GetMessage(context.Background(), randomQueue())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPulsar_GetAllAndPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := connected(t)
	queue := randomQueue()

	for _, m := range []string{"m1", "m2", "m3"} {
		require.NoError(t, c.PutMessage(ctx, m, queue))
	}
	all, err := c.GetAllMessages(ctx, queue)
	require.NoError(t, err)
	assert.Equal(t, "m1, m2, m3", all)

	for range 4 {
		require.NoError(t, c.PutMessage(ctx, "purge-me", queue))
	}
	n, err := c.PurgeQueue(ctx, queue)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	all, err = c.GetAllMessages(ctx, queue)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPulsar_SecondSessionSeesMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	queue := randomQueue()

	producer := connected(t)
	require.NoError(t, producer.PutMessage(ctx, "handed-over", queue))

	consumer := connected(t)
	got, ok, err := consumer.GetMessage(ctx, queue)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "handed-over", got)
}

func TestPulsar_UnreachableBroker(t *testing.T) {
	t.Parallel()
	conn := testConn
	conn.Port = 1
	c := client.New(conn, NewTransport(Options{}, zerolog.Nop()), zerolog.Nop())

	err := c.Connect(context.Background(), client.ConnectParams{})
	assert.True(t, client.IsConnectionError(err), "got %v", err)
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/config"
)

// QueueClient is the part of the queue client facade the commands drive.
type QueueClient interface {
	ConnectionConfig() config.Connection
	PurgeQueue(ctx context.Context, queue string) (int, error)
	PutMessage(ctx context.Context, payload, queue string) error
	PutMessageFromFile(ctx context.Context, path, queue string) error
	GetMessage(ctx context.Context, queue string) (string, bool, error)
	GetAllMessages(ctx context.Context, queue string) (string, error)
	GetMessageIntoFile(ctx context.Context, queue, path string) error
	GetAllMessagesIntoFile(ctx context.Context, queue, path string) error
}

// ClientFactory returns a connected QueueClient and the function that
// disconnects it. It runs only when a command executes, so flags and
// configuration are already resolved.
type ClientFactory func(ctx context.Context) (QueueClient, func() error, error)

// AnnotationConnects marks commands that open a queue manager session.
// Commands without it never need connection settings.
const AnnotationConnects = "mqk/connects"

// WrapQueueCommand creates a command using a nil client for flag definitions,
// then overrides RunE to lazily connect at execution time. Argument checks in
// Args and PreRunE run before the factory. The session is disconnected when
// the command returns.
func WrapQueueCommand(newCmd func(QueueClient) *cobra.Command, factory ClientFactory) *cobra.Command {
	cmd := newCmd(nil)
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[AnnotationConnects] = "true"
	cmd.RunE = func(c *cobra.Command, args []string) (err error) {
		qc, disconnect, err := factory(commandContext(c))
		if err != nil {
			return err
		}
		defer func() {
			if derr := disconnect(); err == nil {
				err = derr
			}
		}()
		return newCmd(qc).RunE(c, args)
	}
	return cmd
}

// Connects reports whether c opens a queue manager session
func Connects(c *cobra.Command) bool {
	return c.Annotations[AnnotationConnects] == "true"
}

func commandContext(c *cobra.Command) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/log"
)

// NewPutCommand creates a put command
func NewPutCommand(qc QueueClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <queue> [message]",
		Short: "Put a message on a queue",
		Long:  "Put a message on a queue. The message comes from the argument, from --file, or from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		// runs before any connection is opened
		PreRunE: validatePut,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doPut(cmd, args, qc)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Read the message from a file")
	cmd.Flags().IntP("count", "n", 1, "Number of times to put the message")

	return cmd
}

func doPut(cmd *cobra.Command, args []string, qc QueueClient) error {
	file, _ := cmd.Flags().GetString("file")
	count, _ := cmd.Flags().GetInt("count")
	queue := args[0]
	ctx := commandContext(cmd)

	put := func() error {
		return qc.PutMessageFromFile(ctx, file, queue)
	}
	if file == "" {
		var message string
		if len(args) > 1 {
			message = args[1]
		} else {
			data, err := readFromStdin()
			if err != nil {
				return err
			}
			message = string(data)
		}
		put = func() error {
			return qc.PutMessage(ctx, message, queue)
		}
	}

	for i := 0; i < count; i++ {
		if err := put(); err != nil {
			return err
		}
		if count > 1 {
			log.Verbose("put message %d/%d\n", i+1, count)
		}
	}

	return nil
}

func validatePut(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	count, _ := cmd.Flags().GetInt("count")

	if count < 1 {
		return fmt.Errorf("invalid count %d", count)
	}
	if file != "" && len(args) > 1 {
		return errors.New("give either a message or --file, not both")
	}
	return nil
}

func readFromStdin() ([]byte, error) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, errors.New("no message provided and no data in stdin")
	}

	return io.ReadAll(os.Stdin)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/log"
)

// NewGetCommand creates a get command (destructive read)
func NewGetCommand(qc QueueClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <queue>",
		Short: "Get a message from a queue (destructive read)",
		Long: "Get the next message from a queue, or with --all every message joined by \", \".\n" +
			"An empty queue is not an error: nothing is printed and --file leaves an empty file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doGet(cmd, args, qc)
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Drain the queue")
	cmd.Flags().StringP("file", "f", "", "Write the message(s) to a file instead of stdout")

	return cmd
}

func doGet(cmd *cobra.Command, args []string, qc QueueClient) error {
	all, _ := cmd.Flags().GetBool("all")
	file, _ := cmd.Flags().GetString("file")
	queue := args[0]
	ctx := commandContext(cmd)

	switch {
	case file != "" && all:
		return qc.GetAllMessagesIntoFile(ctx, queue, file)
	case file != "":
		return qc.GetMessageIntoFile(ctx, queue, file)
	case all:
		messages, err := qc.GetAllMessages(ctx, queue)
		if err != nil {
			return err
		}
		if messages == "" {
			log.Verbose("queue %s is empty\n", queue)
			return nil
		}
		printMessage(messages)
		return nil
	}

	message, ok, err := qc.GetMessage(ctx, queue)
	if err != nil {
		return err
	}
	if !ok {
		log.Verbose("no message available on %s\n", queue)
		return nil
	}
	printMessage(message)
	return nil
}

func printMessage(message string) {
	fmt.Print(message)
	// Add newline if stdout just for better readability
	if log.IsStdout {
		fmt.Println()
	}
}

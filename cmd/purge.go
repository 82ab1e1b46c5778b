package cmd

import (
	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/log"
)

// NewPurgeCommand creates a purge command
func NewPurgeCommand(qc QueueClient) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <queue>",
		Short: "Remove all messages from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := qc.PurgeQueue(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			log.Info("purged %d messages from %s\n", n, args[0])
			return nil
		},
	}
}

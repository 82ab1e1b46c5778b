package cmd

import (
	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/log"
)

// NewConnectCommand creates a command that checks the queue manager is reachable
func NewConnectCommand(qc QueueClient) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to the queue manager and disconnect again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := qc.ConnectionConfig()
			log.Info("connected to queue manager %s via %s (%s)\n", conn.QueueManager, conn.Channel, conn.ConnectionName())
			return nil
		},
	}
}

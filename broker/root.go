// Package broker selects the transport and builds the mqk command tree.
package broker

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/makibytes/mqk/client"
	"github.com/makibytes/mqk/cmd"
	"github.com/makibytes/mqk/config"
	"github.com/makibytes/mqk/log"
)

type rootFlags struct {
	configPath string
	transport  string
	qmgr       string
	channel    string
	host       string
	port       int
	user       string
	password   string
	verbose    bool
	logLevel   string
	logFile    string

	tls      bool
	caCert   string
	cert     string
	keyFile  string
	insecure bool
}

// GetRootCommand returns the mqk root command
func GetRootCommand() *cobra.Command {
	return newRootCommand(os.LookupEnv)
}

func newRootCommand(lookupEnv func(string) (string, bool)) *cobra.Command {
	var (
		flags  rootFlags
		conn   config.Connection
		logger = zerolog.Nop()
	)

	rootCmd := &cobra.Command{
		Use:           "mqk",
		Short:         "Queue client for IBM MQ and other queue managers",
		Long:          "Command-line interface to put, get and purge messages on a queue manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			log.IsVerbose = flags.verbose

			l, err := log.Setup(flags.logLevel, flags.logFile)
			if err != nil {
				return err
			}
			logger = l

			if !cmd.Connects(c) {
				return nil
			}
			conn, err = resolveConnection(c, &flags, lookupEnv, logger)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath, "Connection config file (INI, or YAML by extension)")
	pf.StringVarP(&flags.transport, "transport", "t", "", "Transport: "+strings.Join(Names(), ", "))
	pf.StringVarP(&flags.qmgr, "qmgr", "m", "", "Queue manager name")
	pf.StringVarP(&flags.channel, "channel", "c", "", "Channel name")
	pf.StringVarP(&flags.host, "host", "H", "", "Queue manager host")
	pf.IntVarP(&flags.port, "port", "P", 0, "Queue manager port")
	pf.StringVarP(&flags.user, "user", "u", "", "Username for authentication")
	pf.StringVarP(&flags.password, "password", "p", "", "Password for authentication")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Print verbose output")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "Also write log records to this file")

	// TLS flags
	pf.BoolVar(&flags.tls, "tls", false, "Enable TLS connection (amqp, nats, pulsar)")
	pf.StringVar(&flags.caCert, "ca-cert", "", "Path to CA certificate file")
	pf.StringVar(&flags.cert, "cert", "", "Path to client certificate file")
	pf.StringVar(&flags.keyFile, "key-file", "", "Path to client private key file")
	pf.BoolVar(&flags.insecure, "insecure", false, "Skip TLS certificate verification")

	factory := cmd.ClientFactory(func(ctx context.Context) (cmd.QueueClient, func() error, error) {
		return connectClient(ctx, conn, logger)
	})
	rootCmd.AddCommand(cmd.WrapQueueCommand(cmd.NewConnectCommand, factory))
	rootCmd.AddCommand(cmd.WrapQueueCommand(cmd.NewPurgeCommand, factory))
	rootCmd.AddCommand(cmd.WrapQueueCommand(cmd.NewPutCommand, factory))
	rootCmd.AddCommand(cmd.WrapQueueCommand(cmd.NewGetCommand, factory))

	rootCmd.AddCommand(cmd.NewVersionCommand())

	return rootCmd
}

// resolveConnection layers the settings: config file, then MQK_* variables,
// then the flags given on the command line.
func resolveConnection(c *cobra.Command, f *rootFlags, lookupEnv func(string) (string, bool), logger zerolog.Logger) (config.Connection, error) {
	conn, err := config.Load(f.configPath)
	if errors.Is(err, config.ErrConfigMissing) {
		logger.Info().Err(err).Msg("no config file, using environment and flags")
	} else if err != nil {
		return config.Connection{}, err
	}

	conn, err = config.ApplyEnv(conn, lookupEnv)
	if err != nil {
		return config.Connection{}, err
	}

	changed := c.Flags().Changed
	for name, apply := range map[string]func(){
		"transport": func() { conn.Transport = f.transport },
		"qmgr":      func() { conn.QueueManager = f.qmgr },
		"channel":   func() { conn.Channel = f.channel },
		"host":      func() { conn.Host = f.host },
		"port":      func() { conn.Port = f.port },
		"user":      func() { conn.User = f.user },
		"password":  func() { conn.Password = f.password },
		"tls":       func() { conn.TLS.Enabled = f.tls },
		"ca-cert":   func() { conn.TLS.CACert = f.caCert },
		"cert":      func() { conn.TLS.ClientCert = f.cert },
		"key-file":  func() { conn.TLS.ClientKey = f.keyFile },
		"insecure":  func() { conn.TLS.Insecure = f.insecure },
	} {
		if changed(name) {
			apply()
		}
	}

	logger.Debug().
		Str("transport", conn.Transport).
		Str("qmgr", conn.QueueManager).
		Str("channel", conn.Channel).
		Str("conn_name", conn.ConnectionName()).
		Msg("connection settings resolved")

	return conn, nil
}

// connectClient opens a session with credentials when a user is configured
func connectClient(ctx context.Context, conn config.Connection, logger zerolog.Logger) (cmd.QueueClient, func() error, error) {
	transport, err := NewTransport(conn, logger)
	if err != nil {
		return nil, nil, err
	}

	c := client.New(conn, transport, logger)
	if conn.User != "" {
		err = c.ConnectWithCredentials(ctx, conn.User, conn.Password, client.ConnectParams{})
	} else {
		err = c.Connect(ctx, client.ConnectParams{})
	}
	if err != nil {
		return nil, nil, err
	}

	return c, c.Disconnect, nil
}


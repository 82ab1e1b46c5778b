//go:build ibmmq

package ibmmq

import (
	"context"
	"fmt"

	"github.com/ibm-messaging/mq-golang/v5/ibmmq"
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
)

// TLSConfig holds the channel security settings. An empty KeyRepository keeps the
// channel in plain text.
type TLSConfig struct {
	KeyRepository string // key database stem, without the .kdb extension
	CipherSpec    string
}

// Transport connects to IBM MQ queue managers in client binding mode
type Transport struct {
	tls TLSConfig
	log zerolog.Logger
}

// NewTransport creates an IBM MQ transport
func NewTransport(tls TLSConfig, log zerolog.Logger) *Transport {
	return &Transport{tls: tls, log: log}
}

// Connect implements backends.Transport. The MQI call is blocking and ignores ctx.
func (t *Transport) Connect(_ context.Context, opts backends.ConnectOptions) (backends.Session, error) {
	qMgr, err := Connect(opts, t.tls)
	if err != nil {
		return nil, err
	}

	return &session{
		qMgr: qMgr,
		log:  t.log.With().Str("qmgr", opts.QueueManager).Logger(),
	}, nil
}

// Connect establishes a connection to IBM MQ
func Connect(opts backends.ConnectOptions, tlsCfg TLSConfig) (ibmmq.MQQueueManager, error) {
	cno := ibmmq.NewMQCNO()
	csp := ibmmq.NewMQCSP()

	// Set authentication
	if opts.User != "" {
		csp.AuthenticationType = ibmmq.MQCSP_AUTH_USER_ID_AND_PWD
		csp.UserId = opts.User
		csp.Password = opts.Password
	}
	cno.SecurityParms = csp

	// Set client connection options
	cd := ibmmq.NewMQCD()
	cd.ChannelName = opts.Channel
	cd.ConnectionName = connectionName(opts)

	if tlsCfg.KeyRepository != "" {
		sco := ibmmq.NewMQSCO()
		sco.KeyRepository = tlsCfg.KeyRepository
		cd.SSLCipherSpec = tlsCfg.CipherSpec
		cd.SSLClientAuth = ibmmq.MQSCA_OPTIONAL
		cno.SSLConfig = sco
	}

	cno.ClientConn = cd
	cno.Options = ibmmq.MQCNO_CLIENT_BINDING

	qMgr, err := ibmmq.Connx(opts.QueueManager, cno)
	if err != nil {
		return ibmmq.MQQueueManager{}, fmt.Errorf("failed to connect to queue manager: %w", err)
	}

	return qMgr, nil
}

func connectionName(opts backends.ConnectOptions) string {
	if opts.ConnectionName != "" {
		return opts.ConnectionName
	}
	if opts.Port == 0 {
		return opts.Host
	}
	return fmt.Sprintf("%s(%d)", opts.Host, opts.Port)
}

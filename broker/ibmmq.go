//go:build ibmmq

package broker

import (
	"github.com/rs/zerolog"

	"github.com/makibytes/mqk/broker/backends"
	"github.com/makibytes/mqk/broker/ibmmq"
	"github.com/makibytes/mqk/config"
)

func init() {
	Register("ibmmq", func(conn config.Connection, log zerolog.Logger) (backends.Transport, error) {
		return ibmmq.NewTransport(ibmmq.TLSConfig{
			KeyRepository: conn.TLS.KeyRepository,
			CipherSpec:    conn.TLS.CipherSpec,
		}, log), nil
	})
}

package pulsar

import (
	"fmt"

	pulsarlog "github.com/apache/pulsar-client-go/pulsar/log"
	"github.com/rs/zerolog"
)

// logAdapter routes the Pulsar client's logging into zerolog. Client info
// messages are demoted to debug so a normal run stays quiet.
type logAdapter struct {
	log zerolog.Logger
}

func newLogAdapter(log zerolog.Logger) pulsarlog.Logger {
	return logAdapter{log: log.With().Str("component", "pulsar-client").Logger()}
}

func (l logAdapter) SubLogger(fields pulsarlog.Fields) pulsarlog.Logger {
	return logAdapter{log: l.log.With().Fields(map[string]any(fields)).Logger()}
}

func (l logAdapter) WithFields(fields pulsarlog.Fields) pulsarlog.Entry {
	return l.SubLogger(fields)
}

func (l logAdapter) WithField(name string, value any) pulsarlog.Entry {
	return logAdapter{log: l.log.With().Interface(name, value).Logger()}
}

func (l logAdapter) WithError(err error) pulsarlog.Entry {
	return logAdapter{log: l.log.With().Err(err).Logger()}
}

func (l logAdapter) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l logAdapter) Info(args ...any)  { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l logAdapter) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l logAdapter) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }

func (l logAdapter) Debugf(format string, args ...any) { l.log.Debug().Msgf(format, args...) }
func (l logAdapter) Infof(format string, args ...any)  { l.log.Debug().Msgf(format, args...) }
func (l logAdapter) Warnf(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l logAdapter) Errorf(format string, args ...any) { l.log.Error().Msgf(format, args...) }

package management

import "github.com/rs/zerolog"

// leveledLogger routes retryablehttp's logging into zerolog.
type leveledLogger struct {
	l zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.l.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.l.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.l.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.l.Warn().Fields(kv).Msg(msg) }

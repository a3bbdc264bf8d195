package audit

import (
	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/cfg"
)

func init() {
	RegisterSink("log", func(config cfg.AuditSinkConfiguration) (Sink, error) {
		return &LogSink{}, nil
	})
}

// LogSink writes audit records to the process log. Pair it with the json
// format; payloads pass through verbatim.
type LogSink struct{}

// Publish writes one record at info level.
func (*LogSink) Publish(topic, key string, value []byte) error {
	log.Info().
		Str("topic", topic).
		Str("key", key).
		RawJSON("record", value).
		Msg("audit")
	return nil
}

// Close is a no-op for LogSink.
func (*LogSink) Close() error { return nil }

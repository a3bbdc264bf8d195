// Package audit emits the operational trail of the replication engine: one
// record per execution attempt and one per terminal failure. Destinations and
// encodings are pluggable through factories, so the same records can land in
// the process log, NATS or Kafka without touching the processor.
package audit

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/cfg"
)

// DefaultTopic is used when a sink configuration carries no topic.
const DefaultTopic = "hiveline.audit"

// Record kinds.
const (
	KindAttempt = "attempt"
	KindError   = "error"
)

// Record is one audit line.
type Record struct {
	Kind      string `json:"kind" msgpack:"kind"`
	Statement string `json:"statement" msgpack:"stmt"`
	Detail    string `json:"detail,omitempty" msgpack:"detail,omitempty"`
	AgentID   uint64 `json:"agent_id" msgpack:"agent"`
	TsMS      int64  `json:"ts_ms" msgpack:"ts"`
}

// Sink is a destination for encoded audit records.
type Sink interface {
	// Publish sends one record. The key is stable per statement so keyed
	// destinations partition consistently.
	Publish(topic, key string, value []byte) error
	// Close releases any resources held by the sink.
	Close() error
}

// SinkFactory creates a Sink from its configuration.
type SinkFactory func(cfg.AuditSinkConfiguration) (Sink, error)

// Encoder serializes a record for a sink.
type Encoder func(Record) ([]byte, error)

var (
	sinkFactories = make(map[string]SinkFactory)
	encoders      = make(map[string]Encoder)
	factoryMu     sync.RWMutex
)

// RegisterSink registers a sink factory for a type.
func RegisterSink(sinkType string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

// RegisterEncoder registers an encoder for a format.
func RegisterEncoder(format string, encoder Encoder) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	encoders[format] = encoder
}

type binding struct {
	name  string
	topic string
	sink  Sink
	enc   Encoder
}

// Trail fans audit records out to the configured sinks. Publish failures are
// logged and swallowed: the audit trail must never affect job processing.
type Trail struct {
	agentID  uint64
	bindings []binding
}

// NewTrail builds a trail from sink configurations. An error from any factory
// fails construction; already-built sinks are closed.
func NewTrail(agentID uint64, configs []cfg.AuditSinkConfiguration) (*Trail, error) {
	t := &Trail{agentID: agentID}

	for _, sc := range configs {
		factoryMu.RLock()
		factory, okSink := sinkFactories[sc.Type]
		format := sc.Format
		if format == "" {
			format = "json"
		}
		enc, okEnc := encoders[format]
		factoryMu.RUnlock()

		if !okSink {
			t.Close()
			return nil, fmt.Errorf("audit sink %q: unknown type %q", sc.Name, sc.Type)
		}
		if !okEnc {
			t.Close()
			return nil, fmt.Errorf("audit sink %q: unknown format %q", sc.Name, format)
		}

		sink, err := factory(sc)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("audit sink %q: %w", sc.Name, err)
		}

		topic := sc.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		t.bindings = append(t.bindings, binding{name: sc.Name, topic: topic, sink: sink, enc: enc})
	}

	return t, nil
}

// Attempt records that a statement is about to be executed.
func (t *Trail) Attempt(statement string) {
	t.emit(Record{
		Kind:      KindAttempt,
		Statement: statement,
		AgentID:   t.agentID,
		TsMS:      time.Now().UnixMilli(),
	})
}

// Error records a terminal failure for a statement.
func (t *Trail) Error(statement, detail string) {
	t.emit(Record{
		Kind:      KindError,
		Statement: statement,
		Detail:    detail,
		AgentID:   t.agentID,
		TsMS:      time.Now().UnixMilli(),
	})
}

func (t *Trail) emit(record Record) {
	key := statementKey(record.Statement)

	for _, b := range t.bindings {
		payload, err := b.enc(record)
		if err != nil {
			log.Warn().Err(err).Str("sink", b.name).Msg("Failed to encode audit record")
			continue
		}
		if err := b.sink.Publish(b.topic, key, payload); err != nil {
			log.Warn().Err(err).Str("sink", b.name).Msg("Failed to publish audit record")
		}
	}
}

// Close closes all sinks.
func (t *Trail) Close() {
	for _, b := range t.bindings {
		if err := b.sink.Close(); err != nil {
			log.Warn().Err(err).Str("sink", b.name).Msg("Failed to close audit sink")
		}
	}
	t.bindings = nil
}

// statementKey derives a stable partitioning key from the statement text.
func statementKey(statement string) string {
	return strconv.FormatUint(xxhash.Sum64String(statement), 16)
}

package audit

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hiveline/hiveline/cfg"
)

func init() {
	RegisterSink("nats", func(config cfg.AuditSinkConfiguration) (Sink, error) {
		if config.NatsURL == "" {
			return nil, fmt.Errorf("nats sink requires nats_url")
		}
		return NewNatsSink(config.NatsURL)
	})
}

// NatsSink publishes audit records to a NATS subject.
type NatsSink struct {
	nc *nats.Conn
}

// NewNatsSink connects to NATS with unlimited reconnects; audit publishing
// must survive broker restarts.
func NewNatsSink(url string) (*NatsSink, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsSink{nc: nc}, nil
}

// Publish sends one record; the key rides in a header.
func (n *NatsSink) Publish(topic, key string, value []byte) error {
	msg := &nats.Msg{
		Subject: topic,
		Data:    value,
		Header:  nats.Header{"key": []string{key}},
	}

	if err := n.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close releases the NATS connection.
func (n *NatsSink) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

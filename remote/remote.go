// Package remote owns the connection to the statement-execution endpoint:
// establishing it, rebuilding it after recoverable failures, classifying the
// errors it produces and tearing it down exactly once at shutdown.
package remote

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Conn is a live connection to the remote endpoint.
type Conn interface {
	// Exec submits one plain DDL statement for execution.
	Exec(ctx context.Context, statement string) error
	// Close releases the connection.
	Close() error
}

// Connector establishes fresh connections from configuration.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Manager owns the single live connection handle. Only the processor
// goroutine executes statements; Close may race with an in-flight Exec from a
// shutdown path, in which case the Exec is allowed to fail and gets absorbed
// by the connectivity-failure branch upstream.
type Manager struct {
	connector Connector

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// NewManager creates a manager; no connection is established yet.
func NewManager(connector Connector) *Manager {
	return &Manager{connector: connector}
}

// Connect establishes a fresh connection, replacing any current one.
func (m *Manager) Connect(ctx context.Context) error {
	conn, err := m.connector.Connect(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		conn.Close()
		return ErrClosed
	}

	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("Closing stale endpoint connection failed")
		}
	}
	m.conn = conn

	return nil
}

// Reconnect closes any existing connection, ignoring close errors, and
// connects again.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("Closing broken endpoint connection failed")
		}
		m.conn = nil
	}
	m.mu.Unlock()

	return m.Connect(ctx)
}

// Exec executes a statement on the current connection. The handle is
// snapshotted under the lock but the statement runs outside it, so Close can
// proceed concurrently and fail the in-flight call.
func (m *Manager) Exec(ctx context.Context, statement string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	return conn.Exec(ctx, statement)
}

// Close shuts the connection down. Idempotent; safe to call concurrently with
// an in-flight Exec.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

package remote

import (
	"context"
	"errors"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// fakeConn records executed statements and can be armed to fail.
type fakeConn struct {
	mu       sync.Mutex
	executed []string
	execErr  error
	closed   bool
}

func (f *fakeConn) Exec(ctx context.Context, statement string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return f.execErr
	}
	f.executed = append(f.executed, statement)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeConnector struct {
	mu       sync.Mutex
	conns    []*fakeConn
	connects int
	err      error
}

func (f *fakeConnector) Connect(ctx context.Context) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func TestManager_ExecBeforeConnect(t *testing.T) {
	m := NewManager(&fakeConnector{})

	err := m.Exec(context.Background(), "drop table if exists a.b")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if Classify(err) != ClassTransient {
		t.Error("ErrNotConnected must classify transient")
	}
}

func TestManager_ConnectAndExec(t *testing.T) {
	connector := &fakeConnector{}
	m := NewManager(connector)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := m.Exec(context.Background(), "drop table if exists a.b"); err != nil {
		t.Fatalf("exec failed: %v", err)
	}

	if len(connector.conns) != 1 || len(connector.conns[0].executed) != 1 {
		t.Fatalf("statement not routed to live connection")
	}
}

func TestManager_ReconnectClosesOldConnection(t *testing.T) {
	connector := &fakeConnector{}
	m := NewManager(connector)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := m.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}

	if connector.connects != 2 {
		t.Errorf("expected 2 connects, got %d", connector.connects)
	}
	if !connector.conns[0].closed {
		t.Error("old connection should be closed on reconnect")
	}
	if connector.conns[1].closed {
		t.Error("new connection should stay open")
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	connector := &fakeConnector{}
	m := NewManager(connector)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if err := m.Exec(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("exec after close should return ErrClosed, got %v", err)
	}
	if err := m.Reconnect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("reconnect after close should return ErrClosed, got %v", err)
	}
}

func TestManager_ConnectAfterCloseDiscardsConnection(t *testing.T) {
	connector := &fakeConnector{}
	m := NewManager(connector)
	m.Close()

	if err := m.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("connect after close should return ErrClosed, got %v", err)
	}
	if len(connector.conns) == 1 && !connector.conns[0].closed {
		t.Error("connection established after close must be discarded")
	}
}

func TestSQLConn_ExecPassesStatementThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	conn := &sqlConn{db: db}
	defer conn.Close()

	mock.ExpectExec("alter table sales.orders add if not exists .*").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stmt := "alter table sales.orders add if not exists partition(year='2024') location 's3://b/p'"
	if err := conn.Exec(context.Background(), stmt); err != nil {
		t.Fatalf("exec failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLConn_ExecPropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	conn := &sqlConn{db: db}
	defer conn.Close()

	mock.ExpectExec("drop table .*").
		WillReturnError(errors.New("AlreadyExistsException: Table sales.orders"))

	execErr := conn.Exec(context.Background(), "drop table sales.orders")
	if execErr == nil {
		t.Fatal("expected error")
	}
	if Classify(execErr) != ClassAlreadyExists {
		t.Errorf("expected already-exists classification, got %s", Classify(execErr))
	}
}

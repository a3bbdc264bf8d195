package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"not connected", ErrNotConnected, ClassTransient},
		{"manager closed", ErrClosed, ClassTransient},
		{"wrapped manager closed", fmt.Errorf("exec: %w", ErrClosed), ClassTransient},
		{"closed db text", errors.New("sql: database is closed"), ClassTransient},
		{"bad conn", driver.ErrBadConn, ClassTransient},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), ClassTransient},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"econnrefused", syscall.ECONNREFUSED, ClassTransient},
		{"net timeout", &net.OpError{Op: "dial", Err: &timeoutError{}}, ClassTransient},
		{"refused text", errors.New("dial tcp 10.0.0.1:443: connection refused"), ClassTransient},
		{"broken pipe text", errors.New("write: broken pipe"), ClassTransient},
		{"io timeout text", errors.New("read tcp: i/o timeout"), ClassTransient},
		{"already exists exception", errors.New("SQLException: AlreadyExistsException: Table sales.orders"), ClassAlreadyExists},
		{"already exists plain", errors.New("Table 'sales.orders' already exists"), ClassAlreadyExists},
		{"missing db colon", errors.New("MetaException: Database does not exist: sales"), ClassMissingDatabase},
		{"missing schema quoted", errors.New("Schema 'sales' does not exist"), ClassMissingDatabase},
		{"syntax error", errors.New("line 1:8: mismatched input 'tabel'"), ClassFatal},
		{"permission denied", errors.New("Access Denied: Cannot create table"), ClassFatal},
		{"nil", nil, ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestMissingDatabaseName(t *testing.T) {
	tests := []struct {
		err    error
		want   string
		wantOK bool
	}{
		{errors.New("FAILED: Database does not exist: sales"), "sales", true},
		{errors.New("Schema 'analytics' does not exist"), "analytics", true},
		{errors.New("database ops does not exist"), "ops", true},
		{errors.New("something else entirely"), "", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := MissingDatabaseName(tt.err)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MissingDatabaseName(%v) = (%q, %v), want (%q, %v)",
				tt.err, got, ok, tt.want, tt.wantOK)
		}
	}
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

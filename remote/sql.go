package remote

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLConnector establishes connections through database/sql. The driver must
// be registered by the importing binary (the agent registers trino and mysql).
type SQLConnector struct {
	Driver string
	DSN    string
}

// Connect opens and pings a fresh handle. The pool is pinned to a single
// connection: one worker owns it and statements execute strictly in order.
func (c *SQLConnector) Connect(ctx context.Context) (Conn, error) {
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s endpoint: %w", c.Driver, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s endpoint: %w", c.Driver, err)
	}

	return &sqlConn{db: db}, nil
}

type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Exec(ctx context.Context, statement string) error {
	_, err := c.db.ExecContext(ctx, statement)
	return err
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/IIP-Design/orchestra/internal/config"
)

const defaultMySQLPort = "3306"

// DSN builds a go-sql-driver DSN from a connection section.
func DSN(c config.Connection) string {
	port := c.Port
	if port == "" {
		port = defaultMySQLPort
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Open connects to the database described by db, verifies the connection
// and applies the pool bounds.
func Open(ctx context.Context, db config.Database) (*sql.DB, error) {
	if !slices.Contains(config.SupportedClients, any(db.Client)) {
		return nil, fmt.Errorf("storage: unsupported client %q", db.Client)
	}

	conn, err := sql.Open("mysql", DSN(db.Connection))
	if err != nil {
		return nil, fmt.Errorf("storage: open mysql: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping mysql %s: %w", db.Connection.Host, err)
	}

	applyPool(conn, db.Pool)
	return conn, nil
}

// poolSetter is the part of *sql.DB that takes pool limits.
type poolSetter interface {
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
}

// applyPool maps pool.max to the open connection limit and pool.min to the
// idle limit. A max below 1 would mean "unlimited" to database/sql and is
// ignored.
func applyPool(db poolSetter, pool *config.Pool) {
	if pool == nil {
		return
	}
	if pool.Max != nil && *pool.Max >= 1 {
		db.SetMaxOpenConns(*pool.Max)
	}
	if pool.Min != nil && *pool.Min >= 0 {
		db.SetMaxIdleConns(*pool.Min)
	}
}

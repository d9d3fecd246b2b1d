// Package db provides database connection helpers.
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Params holds the server coordinates shared by every database on it.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// DSN builds a connection URL for database on the server.
func (p Params) DSN(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + database,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}

// Connect opens and verifies a single connection to database. The caller
// owns the connection and must close it.
func Connect(ctx context.Context, p Params, database string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, p.DSN(database))
	if err != nil {
		return nil, fmt.Errorf("pgx.Connect(%s): %w", database, err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return conn, nil
}

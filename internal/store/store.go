// Package store recreates the employers/vacancies schema, loads acquired
// bundles into it and runs the fixed report queries.
//
// Every operation opens its own connection and closes it before returning.
// The store assumes it is the only writer for the duration of a run.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"jobmate/hh-loader/internal/db"
)

// ErrDatabaseInUse is returned by ResetSchema when the target database
// cannot be dropped because another session is connected to it.
var ErrDatabaseInUse = errors.New("database is in use by another session")

// Store owns one target database on a PostgreSQL server.
type Store struct {
	params  db.Params
	adminDB string
	name    string
	log     zerolog.Logger
}

// New returns a Store for database name. adminDB is the database used to
// drop and create it, usually "postgres".
func New(params db.Params, adminDB, name string, logger zerolog.Logger) *Store {
	return &Store{
		params:  params,
		adminDB: adminDB,
		name:    name,
		log:     logger.With().Str("component", "store").Str("database", name).Logger(),
	}
}

// Name returns the target database name.
func (s *Store) Name() string { return s.name }

func (s *Store) connect(ctx context.Context, database string) (*pgx.Conn, error) {
	return db.Connect(ctx, s.params, database)
}

// withConn runs fn on a fresh connection to the target database.
func (s *Store) withConn(ctx context.Context, fn func(*pgx.Conn) error) error {
	conn, err := s.connect(ctx, s.name)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return fn(conn)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func mapDropError(name string, err error) error {
	if hasPgCode(err, pgerrcode.ObjectInUse) {
		return fmt.Errorf("drop database %s: %w", name, ErrDatabaseInUse)
	}
	return fmt.Errorf("drop database %s: %w", name, err)
}

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schemaDDL = []string{
	`CREATE TABLE employers (
		employer_id    SERIAL PRIMARY KEY,
		employer_name  VARCHAR(255) NOT NULL,
		open_vacancies INTEGER,
		trusted        BOOLEAN,
		town           VARCHAR(255),
		description    TEXT
	)`,
	`CREATE TABLE vacancies (
		vacancy_id      SERIAL PRIMARY KEY,
		vacancy_name    VARCHAR(255),
		employer_id     INTEGER NOT NULL REFERENCES employers(employer_id),
		experience      VARCHAR(255),
		salary_currency VARCHAR(16),
		salary_from     INTEGER,
		salary_to       INTEGER,
		town            VARCHAR(255),
		published_at    TIMESTAMPTZ,
		vacancy_url     TEXT,
		description     TEXT
	)`,
}

// ResetSchema drops the target database if it exists, creates it again and
// creates the employers and vacancies tables. All prior data is lost.
func (s *Store) ResetSchema(ctx context.Context) error {
	if err := s.recreateDatabase(ctx); err != nil {
		return err
	}

	return s.withConn(ctx, func(conn *pgx.Conn) error {
		for _, stmt := range schemaDDL {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		s.log.Info().Msg("schema created")
		return nil
	})
}

func (s *Store) recreateDatabase(ctx context.Context) error {
	admin, err := s.connect(ctx, s.adminDB)
	if err != nil {
		return err
	}
	defer admin.Close(ctx)

	var exists bool
	if err := admin.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, s.name,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup database %s: %w", s.name, err)
	}

	ident := pgx.Identifier{s.name}.Sanitize()
	if exists {
		if _, err := admin.Exec(ctx, "DROP DATABASE "+ident); err != nil {
			return mapDropError(s.name, err)
		}
		s.log.Debug().Msg("database dropped")
	}

	if _, err := admin.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return fmt.Errorf("create database %s: %w", s.name, err)
	}
	return nil
}

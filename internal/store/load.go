package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/hh-loader/internal/model"
)

var vacancyColumns = []string{
	"vacancy_id", "vacancy_name", "employer_id", "experience",
	"salary_currency", "salary_from", "salary_to",
	"town", "published_at", "vacancy_url", "description",
}

// Load inserts every bundle: the employer row first, then all of its
// vacancies in one COPY. Each employer is committed on its own; an error
// aborts the load and leaves earlier employers in place.
func (s *Store) Load(ctx context.Context, bundles []model.Bundle) error {
	return s.withConn(ctx, func(conn *pgx.Conn) error {
		for _, b := range bundles {
			if err := s.loadBundle(ctx, conn, b); err != nil {
				return fmt.Errorf("load employer %d: %w", b.Employer.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) loadBundle(ctx context.Context, conn *pgx.Conn, b model.Bundle) error {
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		e := b.Employer
		if _, err := tx.Exec(ctx,
			`INSERT INTO employers (employer_id, employer_name, open_vacancies, trusted, town, description)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.Name, e.OpenVacancies, e.Trusted, e.Town, e.Description,
		); err != nil {
			return fmt.Errorf("insert employer: %w", err)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"vacancies"}, vacancyColumns,
			pgx.CopyFromRows(vacancyRows(b.Vacancies)))
		if err != nil {
			return fmt.Errorf("copy vacancies: %w", err)
		}

		s.log.Debug().
			Int("employer_id", e.ID).
			Int64("vacancies", n).
			Msg("employer loaded")
		return nil
	})
}

func vacancyRows(vacancies []model.Vacancy) [][]any {
	rows := make([][]any, 0, len(vacancies))
	for _, v := range vacancies {
		currency, from, to := v.SalaryFields()
		var published any
		if !v.PublishedAt.IsZero() {
			published = v.PublishedAt
		}
		rows = append(rows, []any{
			v.ID, v.Name, v.EmployerID, v.Experience,
			currency, from, to,
			v.Town, published, v.URL, v.Description,
		})
	}
	return rows
}

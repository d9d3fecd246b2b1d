package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/hh-loader/internal/model"
)

// CompanyVacancyCount is one row of CompaniesAndVacanciesCount.
type CompanyVacancyCount struct {
	Employer  string
	Vacancies int
}

// VacancyListing is one row of AllVacancies. Salary is the
// "from-to currency" string built by the database; missing parts are
// left empty.
type VacancyListing struct {
	Employer string
	Vacancy  string
	URL      string
	Salary   string
}

const vacancySelect = `SELECT vacancy_id, vacancy_name, employer_id, experience,
	salary_currency, salary_from, salary_to, town, published_at, vacancy_url, description
	FROM vacancies`

// CompaniesAndVacanciesCount lists every employer with its vacancy count.
// Employers without vacancies are reported with 0.
func (s *Store) CompaniesAndVacanciesCount(ctx context.Context) ([]CompanyVacancyCount, error) {
	var out []CompanyVacancyCount
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT employer_name, COUNT(vacancy_id)
			 FROM vacancies
			 RIGHT JOIN employers USING (employer_id)
			 GROUP BY employer_name
			 ORDER BY employer_name`)
		if err != nil {
			return fmt.Errorf("companies and vacancies count: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c CompanyVacancyCount
			if err := rows.Scan(&c.Employer, &c.Vacancies); err != nil {
				return fmt.Errorf("companies and vacancies count scan: %w", err)
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// AllVacancies lists every vacancy with its employer name, URL and salary.
func (s *Store) AllVacancies(ctx context.Context) ([]VacancyListing, error) {
	var out []VacancyListing
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT employer_name, vacancy_name, vacancy_url,
			        CONCAT(salary_from, '-', salary_to, ' ', salary_currency) AS salary
			 FROM vacancies
			 JOIN employers USING (employer_id)
			 ORDER BY employer_name, vacancy_id`)
		if err != nil {
			return fmt.Errorf("all vacancies: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var l VacancyListing
			if err := rows.Scan(&l.Employer, &l.Vacancy, &l.URL, &l.Salary); err != nil {
				return fmt.Errorf("all vacancies scan: %w", err)
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	return out, err
}

// AvgSalary returns the mean lower salary bound over all vacancies. Nulls
// are ignored; the result is nil when no vacancy has a lower bound.
func (s *Store) AvgSalary(ctx context.Context) (*float64, error) {
	var avg *float64
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		if err := conn.QueryRow(ctx,
			`SELECT AVG(salary_from)::float8 FROM vacancies`,
		).Scan(&avg); err != nil {
			return fmt.Errorf("avg salary: %w", err)
		}
		return nil
	})
	return avg, err
}

// VacanciesWithHigherSalary lists vacancies whose upper salary bound is
// above the mean lower bound of all vacancies.
func (s *Store) VacanciesWithHigherSalary(ctx context.Context) ([]model.Vacancy, error) {
	return s.queryVacancies(ctx, "vacancies with higher salary",
		vacancySelect+`
		 WHERE salary_to > (SELECT AVG(salary_from) FROM vacancies)
		 ORDER BY vacancy_id`)
}

// VacanciesWithKeyword lists vacancies whose title or description contains
// keyword. Matching is case-sensitive and literal.
func (s *Store) VacanciesWithKeyword(ctx context.Context, keyword string) ([]model.Vacancy, error) {
	return s.queryVacancies(ctx, "vacancies with keyword",
		vacancySelect+`
		 WHERE strpos(vacancy_name, $1) > 0 OR strpos(description, $1) > 0
		 ORDER BY vacancy_id`,
		keyword)
}

func (s *Store) queryVacancies(ctx context.Context, op, query string, args ...any) ([]model.Vacancy, error) {
	var out []model.Vacancy
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVacancy(rows)
			if err != nil {
				return fmt.Errorf("%s scan: %w", op, err)
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func scanVacancy(row pgx.Row) (model.Vacancy, error) {
	var (
		v                      model.Vacancy
		name, experience, town *string
		url                    *string
		published              *time.Time
		salary                 model.Salary
	)
	if err := row.Scan(
		&v.ID, &name, &v.EmployerID, &experience,
		&salary.Currency, &salary.From, &salary.To,
		&town, &published, &url, &v.Description,
	); err != nil {
		return model.Vacancy{}, err
	}

	v.Name = deref(name)
	v.Experience = deref(experience)
	v.Town = deref(town)
	v.URL = deref(url)
	if published != nil {
		v.PublishedAt = *published
	}
	if salary.Currency != nil || salary.From != nil || salary.To != nil {
		v.Salary = &salary
	}
	return v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

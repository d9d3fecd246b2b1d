package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/hh-loader/internal/db"
	"jobmate/hh-loader/internal/model"
)

// These tests need a PostgreSQL server whose user may create databases.
// They skip unless one is reachable; TEST_REQUIRE_DB=1 makes that fatal.

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testParams() db.Params {
	port, _ := strconv.Atoi(getEnvOrDefault("TEST_DB_PORT", "5432"))
	return db.Params{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnvOrDefault("TEST_DB_USER", "postgres"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnvOrDefault("TEST_DB_SSL_MODE", "disable"),
	}
}

func requireDB() bool {
	v := strings.ToLower(os.Getenv("TEST_REQUIRE_DB"))
	return v == "1" || v == "true" || v == "yes"
}

// newTestStore returns a Store on a throwaway database that is dropped
// when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	params := testParams()
	adminDB := getEnvOrDefault("TEST_DB_ADMIN_NAME", "postgres")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := db.Connect(ctx, params, adminDB)
	if err != nil {
		if requireDB() {
			t.Fatal("Test database not available:", err)
		}
		t.Skip("Test database not available:", err)
	}
	conn.Close(ctx)

	b := make([]byte, 4)
	_, _ = rand.Read(b)
	name := "hh_loader_test_" + hex.EncodeToString(b)

	s := New(params, adminDB, name, zerolog.Nop())
	t.Cleanup(func() {
		ctx := context.Background()
		admin, err := db.Connect(ctx, params, adminDB)
		if err != nil {
			t.Logf("cleanup connect: %v", err)
			return
		}
		defer admin.Close(ctx)
		if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()); err != nil {
			t.Logf("cleanup drop %s: %v", name, err)
		}
	})
	return s
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func vacancy(id, employerID int, name string, from, to int) model.Vacancy {
	return model.Vacancy{
		ID:          id,
		Name:        name,
		EmployerID:  employerID,
		Experience:  "1–3 years",
		Salary:      &model.Salary{Currency: strPtr("RUR"), From: intPtr(from), To: intPtr(to)},
		Town:        "Moscow",
		PublishedAt: time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC),
		URL:         "https://hh.ru/vacancy/" + strconv.Itoa(id),
		Description: strPtr("build things"),
	}
}

func employer(id int, name string) model.Employer {
	return model.Employer{ID: id, Name: name, OpenVacancies: 1, Trusted: true, Town: "Moscow", Description: "about"}
}

func loadFixture(t *testing.T, s *Store, bundles []model.Bundle) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.ResetSchema(ctx))
	require.NoError(t, s.Load(ctx, bundles))
}

func TestResetSchema_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loadFixture(t, s, []model.Bundle{{
		Employer:  employer(1, "Acme"),
		Vacancies: []model.Vacancy{vacancy(10, 1, "Go Developer", 1000, 2000)},
	}})

	require.NoError(t, s.ResetSchema(ctx))

	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		var tables []string
		rows, err := conn.Query(ctx,
			`SELECT table_name FROM information_schema.tables
			 WHERE table_schema = 'public' ORDER BY table_name`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			tables = append(tables, name)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"employers", "vacancies"}, tables)

		var employers, vacancies int
		require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM employers`).Scan(&employers))
		require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM vacancies`).Scan(&vacancies))
		assert.Zero(t, employers)
		assert.Zero(t, vacancies)
		return nil
	})
	require.NoError(t, err)
}

func TestResetSchema_DatabaseInUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetSchema(ctx))

	holder, err := s.connect(ctx, s.Name())
	require.NoError(t, err)
	defer holder.Close(ctx)

	err = s.ResetSchema(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseInUse)
}

func TestLoad_RoundTripListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loadFixture(t, s, []model.Bundle{
		{
			Employer: employer(1, "Acme"),
			Vacancies: []model.Vacancy{
				vacancy(10, 1, "Go Developer", 1000, 2000),
				vacancy(11, 1, "SRE", 3000, 4000),
			},
		},
		{
			Employer:  employer(2, "Beta"),
			Vacancies: []model.Vacancy{vacancy(20, 2, "Analyst", 500, 700)},
		},
	})

	got, err := s.AllVacancies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []VacancyListing{
		{Employer: "Acme", Vacancy: "Go Developer", URL: "https://hh.ru/vacancy/10", Salary: "1000-2000 RUR"},
		{Employer: "Acme", Vacancy: "SRE", URL: "https://hh.ru/vacancy/11", Salary: "3000-4000 RUR"},
		{Employer: "Beta", Vacancy: "Analyst", URL: "https://hh.ru/vacancy/20", Salary: "500-700 RUR"},
	}, got)
}

func TestLoad_MissingSalaryPerVacancy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	noSalary := vacancy(11, 1, "Intern", 0, 0)
	noSalary.Salary = nil
	loadFixture(t, s, []model.Bundle{{
		Employer:  employer(1, "Acme"),
		Vacancies: []model.Vacancy{vacancy(10, 1, "Go Developer", 1000, 2000), noSalary},
	}})

	got, err := s.VacanciesWithKeyword(ctx, "e")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Salary)
	assert.Equal(t, 1000, *got[0].Salary.From)
	assert.Nil(t, got[1].Salary)
}

func TestLoad_EmployerSalaryPolicyNullsEveryVacancy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	noSalary := vacancy(12, 1, "Intern", 0, 0)
	noSalary.Salary = nil
	bundles := model.ApplySalaryPolicy([]model.Bundle{
		{
			Employer: employer(1, "Acme"),
			Vacancies: []model.Vacancy{
				vacancy(10, 1, "Go Developer", 1000, 2000),
				vacancy(11, 1, "SRE", 3000, 4000),
				noSalary,
			},
		},
		{
			Employer:  employer(2, "Beta"),
			Vacancies: []model.Vacancy{vacancy(20, 2, "Analyst", 500, 700)},
		},
	}, model.SalaryPerEmployer)
	loadFixture(t, s, bundles)

	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		var nulled, kept int
		require.NoError(t, conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM vacancies WHERE employer_id = 1 AND salary_from IS NULL AND salary_to IS NULL`,
		).Scan(&nulled))
		require.NoError(t, conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM vacancies WHERE employer_id = 2 AND salary_from IS NOT NULL`,
		).Scan(&kept))
		assert.Equal(t, 3, nulled)
		assert.Equal(t, 1, kept)
		return nil
	})
	require.NoError(t, err)
}

func TestLoad_ForeignKeyViolationAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetSchema(ctx))

	err := s.Load(ctx, []model.Bundle{{
		Employer:  employer(1, "Acme"),
		Vacancies: []model.Vacancy{vacancy(10, 999, "Orphan", 1, 2)},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load employer 1")

	counts, err := s.CompaniesAndVacanciesCount(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts, "failed employer must be rolled back")
}

func TestAvgSalary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loadFixture(t, s, []model.Bundle{{
		Employer: employer(1, "Acme"),
		Vacancies: []model.Vacancy{
			vacancy(10, 1, "A", 1000, 1500),
			vacancy(11, 1, "B", 2000, 2500),
			vacancy(12, 1, "C", 3000, 3500),
		},
	}})

	avg, err := s.AvgSalary(ctx)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 2000, *avg, 0.0001)
}

func TestAvgSalary_Empty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ResetSchema(context.Background()))

	avg, err := s.AvgSalary(context.Background())
	require.NoError(t, err)
	assert.Nil(t, avg)
}

// The upper bound is compared with the mean of the lower bounds.
func TestVacanciesWithHigherSalary_ComparesUpperToMeanLower(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// mean salary_from = 2000
	loadFixture(t, s, []model.Bundle{{
		Employer: employer(1, "Acme"),
		Vacancies: []model.Vacancy{
			vacancy(10, 1, "A", 1000, 1900),
			vacancy(11, 1, "B", 1500, 2100), // from below mean, to above: included
			vacancy(12, 1, "C", 3500, 4000),
		},
	}})

	got, err := s.VacanciesWithHigherSalary(ctx)
	require.NoError(t, err)
	ids := make([]int, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []int{11, 12}, ids)
}

func TestVacanciesWithKeyword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	java := vacancy(11, 1, "Java Developer", 1000, 2000)
	java.Description = strPtr("enterprise services")
	inDescription := vacancy(12, 1, "Backend Engineer", 1000, 2000)
	inDescription.Description = strPtr("Python and Go services")
	lower := vacancy(13, 1, "python scripter", 1000, 2000)
	lower.Description = nil

	loadFixture(t, s, []model.Bundle{{
		Employer: employer(1, "Acme"),
		Vacancies: []model.Vacancy{
			vacancy(10, 1, "Python Developer", 1000, 2000),
			java, inDescription, lower,
		},
	}})

	got, err := s.VacanciesWithKeyword(ctx, "Python")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Python Developer", got[0].Name)
	assert.Equal(t, 12, got[1].ID)

	got, err = s.VacanciesWithKeyword(ctx, "Java")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11, got[0].ID)

	// wildcard characters match literally
	got, err = s.VacanciesWithKeyword(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompaniesAndVacanciesCount_ZeroVacancies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loadFixture(t, s, []model.Bundle{
		{
			Employer: employer(1, "Acme"),
			Vacancies: []model.Vacancy{
				vacancy(10, 1, "A", 1000, 2000),
				vacancy(11, 1, "B", 1000, 2000),
			},
		},
		{Employer: employer(2, "Empty Inc")},
	})

	got, err := s.CompaniesAndVacanciesCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CompanyVacancyCount{
		{Employer: "Acme", Vacancies: 2},
		{Employer: "Empty Inc", Vacancies: 0},
	}, got)
}

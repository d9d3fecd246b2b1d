// Package pipeline runs one full sync: acquire every employer, recreate the
// schema, load the bundles, then serve the reports.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobmate/hh-loader/internal/events"
	"jobmate/hh-loader/internal/model"
	"jobmate/hh-loader/internal/store"
)

// Acquirer produces one bundle per employer, in order.
type Acquirer interface {
	AcquireAll(ctx context.Context, refs []model.EmployerRef) ([]model.Bundle, error)
}

// Store is the persistence and reporting side of a sync.
type Store interface {
	Name() string
	ResetSchema(ctx context.Context) error
	Load(ctx context.Context, bundles []model.Bundle) error

	CompaniesAndVacanciesCount(ctx context.Context) ([]store.CompanyVacancyCount, error)
	AllVacancies(ctx context.Context) ([]store.VacancyListing, error)
	AvgSalary(ctx context.Context) (*float64, error)
	VacanciesWithHigherSalary(ctx context.Context) ([]model.Vacancy, error)
	VacanciesWithKeyword(ctx context.Context, keyword string) ([]model.Vacancy, error)
}

// Summary describes a completed sync.
type Summary struct {
	Employers int
	Vacancies int
	Duration  time.Duration
}

// Reports holds the results of the five report queries.
type Reports struct {
	Counts         []store.CompanyVacancyCount
	Listing        []store.VacancyListing
	AvgSalary      *float64
	HigherSalary   []model.Vacancy
	Keyword        string
	KeywordMatches []model.Vacancy
}

// Runner wires acquisition to persistence.
type Runner struct {
	acquirer  Acquirer
	store     Store
	publisher events.Publisher
	employers []model.EmployerRef
	policy    model.SalaryPolicy
	log       zerolog.Logger
	now       func() time.Time
}

// NewRunner returns a Runner syncing employers into st. A nil publisher
// disables sync events.
func NewRunner(
	acquirer Acquirer,
	st Store,
	publisher events.Publisher,
	employers []model.EmployerRef,
	policy model.SalaryPolicy,
	logger zerolog.Logger,
) *Runner {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Runner{
		acquirer:  acquirer,
		store:     st,
		publisher: publisher,
		employers: employers,
		policy:    policy,
		log:       logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Sync acquires every employer, recreates the schema and loads the result.
// Acquisition finishes before the database is touched, so a failed fetch
// leaves the previous data in place.
func (r *Runner) Sync(ctx context.Context) (Summary, error) {
	start := r.now()
	r.log.Info().Int("employers", len(r.employers)).Msg("sync started")

	bundles, err := r.acquirer.AcquireAll(ctx, r.employers)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire: %w", err)
	}
	bundles = model.ApplySalaryPolicy(bundles, r.policy)

	if err := r.store.ResetSchema(ctx); err != nil {
		return Summary{}, fmt.Errorf("reset schema: %w", err)
	}
	if err := r.store.Load(ctx, bundles); err != nil {
		return Summary{}, fmt.Errorf("load: %w", err)
	}

	sum := Summary{Employers: len(bundles), Duration: r.now().Sub(start)}
	for _, b := range bundles {
		sum.Vacancies += len(b.Vacancies)
	}

	r.log.Info().
		Int("employers", sum.Employers).
		Int("vacancies", sum.Vacancies).
		Dur("duration", sum.Duration).
		Msg("sync complete")

	// Non-fatal: the data is already committed.
	if err := r.publisher.PublishSynced(ctx, events.SyncedEvent{
		Database:   r.store.Name(),
		Employers:  sum.Employers,
		Vacancies:  sum.Vacancies,
		DurationMs: sum.Duration.Milliseconds(),
		FinishedAt: r.now().UTC(),
	}); err != nil {
		r.log.Warn().Err(err).Msg("sync event not published")
	}

	return sum, nil
}

// Reports runs the five report queries against the loaded database.
func (r *Runner) Reports(ctx context.Context, keyword string) (Reports, error) {
	var (
		rep = Reports{Keyword: keyword}
		err error
	)
	if rep.Counts, err = r.store.CompaniesAndVacanciesCount(ctx); err != nil {
		return Reports{}, err
	}
	if rep.Listing, err = r.store.AllVacancies(ctx); err != nil {
		return Reports{}, err
	}
	if rep.AvgSalary, err = r.store.AvgSalary(ctx); err != nil {
		return Reports{}, err
	}
	if rep.HigherSalary, err = r.store.VacanciesWithHigherSalary(ctx); err != nil {
		return Reports{}, err
	}
	if rep.KeywordMatches, err = r.store.VacanciesWithKeyword(ctx, keyword); err != nil {
		return Reports{}, err
	}
	return rep, nil
}

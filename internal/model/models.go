// Package model defines shared data structures for the loader.
package model

import "time"

// EmployerRef is one entry of the ordered employer list handed to
// acquisition. Label is only used for logging.
type EmployerRef struct {
	Label string
	ID    int
}

// Employer mirrors a row of the employers table.
type Employer struct {
	ID            int
	Name          string
	OpenVacancies int
	Trusted       bool
	Town          string
	Description   string
}

// Salary holds the optional salary sub-object of a vacancy.
// Any field may be nil when the API omits it.
type Salary struct {
	Currency *string
	From     *int
	To       *int
}

// Vacancy mirrors a row of the vacancies table.
type Vacancy struct {
	ID          int
	Name        string
	EmployerID  int
	Experience  string
	Salary      *Salary // nil when the API returned no salary object
	Town        string
	PublishedAt time.Time
	URL         string
	Description *string
}

// SalaryFields returns the three salary columns, nil when unknown.
func (v Vacancy) SalaryFields() (currency *string, from, to *int) {
	if v.Salary == nil {
		return nil, nil, nil
	}
	return v.Salary.Currency, v.Salary.From, v.Salary.To
}

// Bundle is one employer's profile plus its vacancies in API page order.
// It only lives in memory between acquisition and load.
type Bundle struct {
	Employer  Employer
	Vacancies []Vacancy
}

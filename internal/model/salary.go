package model

import "fmt"

// SalaryPolicy decides how missing salary data is stored.
type SalaryPolicy string

const (
	// SalaryPerVacancy keeps each vacancy's own salary; only vacancies
	// without a salary object get null salary columns.
	SalaryPerVacancy SalaryPolicy = "per-vacancy"
	// SalaryPerEmployer nulls the salary of every vacancy of an employer
	// as soon as one of them has no salary object. Matches data written
	// by older loaders.
	SalaryPerEmployer SalaryPolicy = "employer"
)

// ParseSalaryPolicy converts a raw string to a SalaryPolicy.
func ParseSalaryPolicy(s string) (SalaryPolicy, error) {
	p := SalaryPolicy(s)
	switch p {
	case SalaryPerVacancy, SalaryPerEmployer:
		return p, nil
	}
	return "", fmt.Errorf("unknown salary policy %q", s)
}

// ApplySalaryPolicy returns bundles with the policy applied. The input is
// not modified.
func ApplySalaryPolicy(bundles []Bundle, policy SalaryPolicy) []Bundle {
	if policy != SalaryPerEmployer {
		return bundles
	}

	out := make([]Bundle, len(bundles))
	for i, b := range bundles {
		out[i] = b
		if !anyMissingSalary(b.Vacancies) {
			continue
		}
		vacancies := make([]Vacancy, len(b.Vacancies))
		for j, v := range b.Vacancies {
			v.Salary = nil
			vacancies[j] = v
		}
		out[i].Vacancies = vacancies
	}
	return out
}

func anyMissingSalary(vacancies []Vacancy) bool {
	for _, v := range vacancies {
		if v.Salary == nil {
			return true
		}
	}
	return false
}

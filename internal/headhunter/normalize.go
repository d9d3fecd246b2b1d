package headhunter

import (
	"fmt"
	"strconv"
	"time"

	"jobmate/hh-loader/internal/model"
)

// publishedAtLayout is the timestamp format of the API (no colon in offset).
const publishedAtLayout = "2006-01-02T15:04:05-0700"

type namedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// employerResponse mirrors GET /employers/{id}.
type employerResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	OpenVacancies int      `json:"open_vacancies"`
	Trusted       bool     `json:"trusted"`
	Area          namedRef `json:"area"`
	Description   string   `json:"description"`
}

// vacanciesResponse mirrors one page of GET /vacancies.
type vacanciesResponse struct {
	Items   []vacancyItem `json:"items"`
	Found   int           `json:"found"`
	Pages   int           `json:"pages"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

type vacancyItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Employer     namedRef      `json:"employer"`
	Experience   namedRef      `json:"experience"`
	Salary       *salaryObject `json:"salary"`
	Area         namedRef      `json:"area"`
	PublishedAt  string        `json:"published_at"`
	AlternateURL string        `json:"alternate_url"`
	Snippet      struct {
		Responsibility *string `json:"responsibility"`
	} `json:"snippet"`
}

type salaryObject struct {
	Currency *string `json:"currency"`
	From     *int    `json:"from"`
	To       *int    `json:"to"`
}

func (r employerResponse) toModel() (model.Employer, error) {
	id, err := parseID(r.ID)
	if err != nil {
		return model.Employer{}, fmt.Errorf("employer id: %w", err)
	}
	return model.Employer{
		ID:            id,
		Name:          r.Name,
		OpenVacancies: r.OpenVacancies,
		Trusted:       r.Trusted,
		Town:          r.Area.Name,
		Description:   r.Description,
	}, nil
}

func (it vacancyItem) toModel(ownerID int) (model.Vacancy, error) {
	id, err := parseID(it.ID)
	if err != nil {
		return model.Vacancy{}, fmt.Errorf("vacancy id: %w", err)
	}

	employerID := ownerID
	if it.Employer.ID != "" {
		if employerID, err = parseID(it.Employer.ID); err != nil {
			return model.Vacancy{}, fmt.Errorf("vacancy %d employer id: %w", id, err)
		}
	}

	published, err := parsePublishedAt(it.PublishedAt)
	if err != nil {
		return model.Vacancy{}, fmt.Errorf("vacancy %d: %w", id, err)
	}

	v := model.Vacancy{
		ID:          id,
		Name:        it.Name,
		EmployerID:  employerID,
		Experience:  it.Experience.Name,
		Town:        it.Area.Name,
		PublishedAt: published,
		URL:         it.AlternateURL,
		Description: it.Snippet.Responsibility,
	}
	if it.Salary != nil {
		v.Salary = &model.Salary{
			Currency: it.Salary.Currency,
			From:     it.Salary.From,
			To:       it.Salary.To,
		}
	}
	return v, nil
}

// normalizeVacancies converts raw items in order. A vacancy id seen twice
// (the listing may shift between page requests) is kept once.
func normalizeVacancies(items []vacancyItem, ownerID int) ([]model.Vacancy, error) {
	seen := make(map[int]struct{}, len(items))
	out := make([]model.Vacancy, 0, len(items))
	for _, it := range items {
		v, err := it.toModel(ownerID)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parsePublishedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{publishedAtLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid published_at %q", s)
}

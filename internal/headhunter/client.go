// Package headhunter fetches employer profiles and vacancy listings from
// the HeadHunter public API and normalises them into model bundles.
package headhunter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobmate/hh-loader/internal/model"
)

const (
	DefaultBaseURL   = "https://api.hh.ru"
	DefaultUserAgent = "hh-loader/1.0 (jobmate)"

	pageSize = 100
	maxPages = 20 // the API serves at most 2000 items per query
)

// ErrUnexpectedStatus is returned when the API answers with a non-200 code.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the HeadHunter API. Requests are strictly sequential and
// never retried; any transport or decode error is returned to the caller.
type Client struct {
	BaseURL   string
	UserAgent string
	client    *http.Client
	log       zerolog.Logger
}

// NewClient constructs a Client with its own HTTP client.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       logger.With().Str("component", "headhunter").Logger(),
	}
}

// FetchEmployer returns the profile of a single employer.
func (c *Client) FetchEmployer(ctx context.Context, employerID int) (model.Employer, error) {
	params := url.Values{}
	params.Set("only_with_vacancies", "true")
	params.Set("per_page", strconv.Itoa(pageSize))

	body, err := c.get(ctx, "/employers/"+strconv.Itoa(employerID), params)
	if err != nil {
		return model.Employer{}, fmt.Errorf("employer %d: %w", employerID, err)
	}

	var raw employerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Employer{}, fmt.Errorf("employer %d: json unmarshal: %w", employerID, err)
	}
	emp, err := raw.toModel()
	if err != nil {
		return model.Employer{}, fmt.Errorf("employer %d: %w", employerID, err)
	}
	return emp, nil
}

// FetchVacancyPage returns the raw JSON body of one page of an employer's
// vacancies. Pages are zero-based.
func (c *Client) FetchVacancyPage(ctx context.Context, employerID, page int) ([]byte, error) {
	params := url.Values{}
	params.Set("employer_id", strconv.Itoa(employerID))
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(pageSize))

	body, err := c.get(ctx, "/vacancies", params)
	if err != nil {
		return nil, fmt.Errorf("vacancies of %d page %d: %w", employerID, page, err)
	}
	return body, nil
}

// FetchAllVacancies walks the vacancy pages of an employer from page 0
// until the last reported page or the 20 page cap, whichever comes first.
// Every call starts over from page 0.
func (c *Client) FetchAllVacancies(ctx context.Context, employerID int) ([]model.Vacancy, error) {
	var items []vacancyItem

	for page := 0; page < maxPages; page++ {
		body, err := c.FetchVacancyPage(ctx, employerID, page)
		if err != nil {
			return nil, err
		}

		var resp vacanciesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("vacancies of %d page %d: json unmarshal: %w", employerID, page, err)
		}
		items = append(items, resp.Items...)

		c.log.Debug().
			Int("employer_id", employerID).
			Int("page", page).
			Int("pages", resp.Pages).
			Int("items", len(resp.Items)).
			Msg("vacancy page fetched")

		if resp.Pages-page <= 1 {
			break
		}
	}

	vacancies, err := normalizeVacancies(items, employerID)
	if err != nil {
		return nil, fmt.Errorf("vacancies of %d: %w", employerID, err)
	}
	return vacancies, nil
}

// BuildBundle fetches the profile and every vacancy of one employer.
func (c *Client) BuildBundle(ctx context.Context, employerID int) (model.Bundle, error) {
	emp, err := c.FetchEmployer(ctx, employerID)
	if err != nil {
		return model.Bundle{}, err
	}
	vacancies, err := c.FetchAllVacancies(ctx, employerID)
	if err != nil {
		return model.Bundle{}, err
	}
	return model.Bundle{Employer: emp, Vacancies: vacancies}, nil
}

// AcquireAll builds one bundle per employer, in the order given. The first
// failure aborts the run and no partial result is returned.
func (c *Client) AcquireAll(ctx context.Context, refs []model.EmployerRef) ([]model.Bundle, error) {
	bundles := make([]model.Bundle, 0, len(refs))
	for _, ref := range refs {
		b, err := c.BuildBundle(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("acquire %q: %w", ref.Label, err)
		}
		c.log.Info().
			Str("employer", ref.Label).
			Int("employer_id", ref.ID).
			Int("vacancies", len(b.Vacancies)).
			Msg("employer acquired")
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}
	return body, nil
}

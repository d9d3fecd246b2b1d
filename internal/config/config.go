// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid value aborts the process before any work is done.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"jobmate/hh-loader/internal/db"
	"jobmate/hh-loader/internal/model"
)

// DefaultEmployers is the employer list synced when EMPLOYERS is unset.
var DefaultEmployers = []model.EmployerRef{
	{Label: "Ostrovok.ru", ID: 697715},
	{Label: "Webtronics", ID: 5843588},
	{Label: "ООО СФЕРА", ID: 4402893},
	{Label: "SL KG", ID: 9472269},
	{Label: "Convergent", ID: 57862},
	{Label: "Mindbox", ID: 205152},
	{Label: "Звук", ID: 1829949},
	{Label: "Пикассо", ID: 737268},
	{Label: "Eqvanta", ID: 3785152},
	{Label: "B.ART", ID: 9352347},
}

// HHConfig configures the HeadHunter API client.
type HHConfig struct {
	BaseURL   string        `env:"BASE_URL"   envDefault:"https://api.hh.ru"`
	UserAgent string        `env:"USER_AGENT" envDefault:"hh-loader/1.0 (jobmate)"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"15s"`
}

// DBConfig contains PostgreSQL connection settings.
type DBConfig struct {
	Host      string `env:"HOST"       envDefault:"localhost"`
	Port      int    `env:"PORT"       envDefault:"5432"`
	User      string `env:"USER"       envDefault:"postgres"`
	Password  string `env:"PASSWORD"`
	Name      string `env:"NAME"       envDefault:"headhunter"`
	AdminName string `env:"ADMIN_NAME" envDefault:"postgres"`
	SSLMode   string `env:"SSL_MODE"   envDefault:"disable"`
}

// Params returns the server coordinates for db.Connect.
func (c DBConfig) Params() db.Params {
	return db.Params{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		SSLMode:  c.SSLMode,
	}
}

// Config holds all runtime configuration for the loader.
type Config struct {
	HH HHConfig `envPrefix:"HH_"`
	DB DBConfig `envPrefix:"DB_"`

	// RedisURL enables sync events when set.
	RedisURL string `env:"REDIS_URL"`

	SyncIntervalHours int    `env:"SYNC_INTERVAL_HOURS" envDefault:"6"`
	SalaryPolicy      string `env:"SALARY_POLICY"       envDefault:"per-vacancy"`
	ReportKeyword     string `env:"REPORT_KEYWORD"      envDefault:"Python"`

	// Employers is "label=id,label=id". Empty means DefaultEmployers.
	EmployersRaw string `env:"EMPLOYERS"`

	employers []model.EmployerRef
	policy    model.SalaryPolicy
}

// Employers returns the ordered employer list to sync.
func (c *Config) Employers() []model.EmployerRef { return c.employers }

// Policy returns the parsed salary policy.
func (c *Config) Policy() model.SalaryPolicy { return c.policy }

// Load reads an optional .env file and the environment, and returns a
// validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SyncIntervalHours < 1 {
		return fmt.Errorf("SYNC_INTERVAL_HOURS must be a positive integer, got %d", c.SyncIntervalHours)
	}
	if c.DB.Name == "" {
		return errors.New("DB_NAME is required")
	}
	if c.HH.Timeout <= 0 {
		return fmt.Errorf("HH_TIMEOUT must be positive, got %s", c.HH.Timeout)
	}

	policy, err := model.ParseSalaryPolicy(c.SalaryPolicy)
	if err != nil {
		return fmt.Errorf("SALARY_POLICY: %w", err)
	}
	c.policy = policy

	if c.EmployersRaw == "" {
		c.employers = append([]model.EmployerRef(nil), DefaultEmployers...)
		return nil
	}
	refs, err := ParseEmployers(c.EmployersRaw)
	if err != nil {
		return fmt.Errorf("EMPLOYERS: %w", err)
	}
	c.employers = refs
	return nil
}

// ParseEmployers parses "label=id,label=id" keeping the given order.
// Duplicate ids are rejected.
func ParseEmployers(raw string) ([]model.EmployerRef, error) {
	var refs []model.EmployerRef
	seen := make(map[int]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		i := strings.LastIndex(entry, "=")
		if i <= 0 || i == len(entry)-1 {
			return nil, fmt.Errorf("entry %q: want label=id", entry)
		}
		label := strings.TrimSpace(entry[:i])
		id, err := strconv.Atoi(strings.TrimSpace(entry[i+1:]))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("entry %q: id must be a positive integer", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("entry %q: duplicate id %d", entry, id)
		}
		seen[id] = true
		refs = append(refs, model.EmployerRef{Label: label, ID: id})
	}

	if len(refs) == 0 {
		return nil, errors.New("no employers given")
	}
	return refs, nil
}

// Command hh-loader fetches the configured employers and all of their open
// vacancies from the HeadHunter API, recreates the PostgreSQL schema, loads
// the data and prints five reports. Running without arguments performs the
// `run` command.
//
//   - run: full sync, then reports (default)
//   - report: reports only, against the existing database
//   - watch: full sync every SYNC_INTERVAL_HOURS until interrupted
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"jobmate/hh-loader/internal/config"
	"jobmate/hh-loader/internal/db"
	"jobmate/hh-loader/internal/events"
	"jobmate/hh-loader/internal/headhunter"
	"jobmate/hh-loader/internal/pipeline"
	"jobmate/hh-loader/internal/report"
	"jobmate/hh-loader/internal/scheduler"
	"jobmate/hh-loader/internal/store"
)

const version = "1.0.0"

type CLI struct {
	Verbose bool   `help:"Enable debug logging." env:"HH_LOADER_VERBOSE"`
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`

	VersionFlag kong.VersionFlag `name:"version" help:"Print version."`

	Run    RunCmd    `cmd:"" default:"1" help:"Sync employers and print reports."`
	Report ReportCmd `cmd:"" help:"Print reports from the loaded database."`
	Watch  WatchCmd  `cmd:"" help:"Re-sync on a schedule until interrupted."`
}

// app carries what every command needs.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	log     zerolog.Logger
	printer *report.Printer
}

type RunCmd struct{}

func (c *RunCmd) Run(a *app) error {
	runner, closeFn, err := newRunner(a)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := runner.Sync(a.ctx); err != nil {
		return err
	}
	rep, err := runner.Reports(a.ctx, a.cfg.ReportKeyword)
	if err != nil {
		return err
	}
	return a.printer.Print(rep)
}

type ReportCmd struct {
	Keyword string `help:"Keyword for the search report. Defaults to REPORT_KEYWORD."`
}

func (c *ReportCmd) Run(a *app) error {
	runner, closeFn, err := newRunner(a)
	if err != nil {
		return err
	}
	defer closeFn()

	keyword := c.Keyword
	if keyword == "" {
		keyword = a.cfg.ReportKeyword
	}
	rep, err := runner.Reports(a.ctx, keyword)
	if err != nil {
		return err
	}
	return a.printer.Print(rep)
}

type WatchCmd struct{}

func (c *WatchCmd) Run(a *app) error {
	runner, closeFn, err := newRunner(a)
	if err != nil {
		return err
	}
	defer closeFn()

	sched := scheduler.New(runner, a.cfg.SyncIntervalHours, a.log)
	if err := sched.Start(a.ctx); err != nil {
		return err
	}

	<-a.ctx.Done()
	a.log.Info().Msg("shutting down")
	sched.Stop()
	return nil
}

// newRunner builds the pipeline from config. The returned func releases
// the Redis client, if any.
func newRunner(a *app) (*pipeline.Runner, func(), error) {
	cfg := a.cfg

	var (
		publisher events.Publisher = events.Nop{}
		closeFn                    = func() {}
	)
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(a.ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		publisher = events.NewRedisPublisher(rdb)
		closeFn = func() { _ = rdb.Close() }
		a.log.Info().Msg("redis connected")
	}

	client := headhunter.NewClient(cfg.HH.BaseURL, cfg.HH.UserAgent, cfg.HH.Timeout, a.log)
	st := store.New(cfg.DB.Params(), cfg.DB.AdminName, cfg.DB.Name, a.log)

	return pipeline.NewRunner(client, st, publisher, cfg.Employers(), cfg.Policy(), a.log), closeFn, nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("hh-loader"),
		kong.Description("Load HeadHunter employers and vacancies into PostgreSQL and report on them."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	level := zerolog.InfoLevel
	if cli.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "hh-loader").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		ctx:     ctx,
		cfg:     cfg,
		log:     logger,
		printer: report.NewPrinter(os.Stdout, report.ColorMode(cli.Color)),
	}

	if err := kctx.Run(a); err != nil {
		logger.Error().Err(err).Msg("failed")
		stop()
		os.Exit(1)
	}
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/fetch"
	"github.com/starford/planetfeed/internal/forum"
	"github.com/starford/planetfeed/internal/keyword"
	"github.com/starford/planetfeed/internal/pipeline"
	"github.com/starford/planetfeed/internal/source"
	"github.com/starford/planetfeed/internal/storage"
)

const previewParallel = 4

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{
		now: time.Now,
		out: os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	if app.fetcher == nil {
		app.fetcher = fetch.NewHTTPFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	return app, logger, nil
}

func (a *application) adapters() ([]source.Adapter, *keyword.Filter, error) {
	adapters, err := source.Build(a.config.Descriptors(), a.fetcher)
	if err != nil {
		return nil, nil, err
	}
	return adapters, keyword.New(a.config.Pipeline.Keywords, a.config.Pipeline.MatchMode), nil
}

// Run performs one posting pass: every scheduled source is scraped, matching
// unseen articles are submitted, and the record store is pruned and saved.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", cfg.Store.Path),
		slog.String("subreddit", cfg.Forum.Subreddit),
		slog.Int("sources", len(cfg.Sources)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	submitter := app.submitter
	if submitter == nil {
		if err := cfg.Forum.ValidateCredentials(); err != nil {
			return fmt.Errorf("forum credentials: %w", err)
		}
		submitter = forum.NewReddit(cfg.Forum.Reddit(cfg.HTTP.Timeout))
	}

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	adapters, filter, err := app.adapters()
	if err != nil {
		return fmt.Errorf("init sources: %w", err)
	}
	logger.Debug("sources ready",
		slog.Int("adapters", len(adapters)),
		slog.Any("keywords", filter.Keywords()),
		slog.String("match_mode", cfg.Pipeline.MatchMode))

	p := pipeline.New(pipeline.Config{
		Retention: cfg.Store.Retention,
		Throttle:  cfg.Pipeline.Throttle,
		SaveEach:  cfg.Pipeline.SaveEach,
	}, store, adapters, filter, submitter,
		pipeline.WithLogger(logger),
		pipeline.WithClock(app.now),
	)

	stats, err := p.Run(ctx)
	if err != nil {
		logger.Error("run aborted", slog.Any("stats", stats), slog.String("error", err.Error()))
		return err
	}
	logger.Info("run finished", slog.Any("stats", stats))

	if cfg.Pipeline.FailOnSourceError && stats.SourceErrors > 0 {
		return fmt.Errorf("%w: %d of %d", apperr.ErrSourcesFailed, stats.SourceErrors, stats.Sources)
	}
	return nil
}

// Check scrapes every configured source and prints what a run would submit
// without posting anything or touching the store on disk.
func Check(ctx context.Context, opts ...Option) error {
	app, _, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	adapters, filter, err := app.adapters()
	if err != nil {
		return fmt.Errorf("init sources: %w", err)
	}

	reports, err := pipeline.Preview(ctx, adapters, filter, store, app.now(), previewParallel)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(reports))
	var pending []string
	for _, r := range reports {
		status := "ok"
		switch {
		case r.Err != nil:
			status = r.Err.Error()
		case !r.Scheduled:
			status = "not scheduled"
		}
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Candidates),
			strconv.Itoa(r.Malformed),
			strconv.Itoa(r.Matched),
			strconv.Itoa(r.Posted),
			strconv.Itoa(len(r.Pending)),
			status,
		})
		if r.Scheduled {
			for _, c := range r.Pending {
				pending = append(pending, r.Name+": "+c.Title)
			}
		}
	}
	renderTable(app.out, []string{"source", "items", "malformed", "matched", "posted", "pending", "status"}, rows)

	if len(pending) > 0 {
		fmt.Fprintln(app.out)
		for _, p := range pending {
			fmt.Fprintln(app.out, p)
		}
	}
	return nil
}

// History prints the posted-article records, newest first.
func History(_ context.Context, opts ...Option) error {
	app, _, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	now := app.now()
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.PostedAt.UTC().Format(time.DateTime),
			strconv.Itoa(int(r.Age(now).Hours()/24)) + "d",
			r.Title,
			r.Link,
		})
	}
	renderTable(app.out, []string{"posted", "age", "title", "link"}, rows)
	return nil
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	_ = table.Bulk(rows)
	_ = table.Render()
}

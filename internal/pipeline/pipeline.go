// Package pipeline drives source adapters through keyword filtering,
// deduplication and forum submission in a single sequential pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/forum"
	"github.com/starford/planetfeed/internal/keyword"
	"github.com/starford/planetfeed/internal/models"
	"github.com/starford/planetfeed/internal/source"
	"github.com/starford/planetfeed/internal/storage"
)

// Config holds the run policy.
type Config struct {
	// Retention is the age after which records are evicted at the end of a run.
	Retention time.Duration
	// Throttle is the minimum spacing between two submissions.
	Throttle time.Duration
	// SaveEach persists the store after every successful submission.
	SaveEach bool
}

// Stats counts what happened during a run.
type Stats struct {
	Sources      int
	SourceErrors int
	Candidates   int
	Malformed    int
	Matched      int
	Skipped      int
	Submitted    int
	Fallbacks    int
	Evicted      int
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("sources", s.Sources),
		slog.Int("source_errors", s.SourceErrors),
		slog.Int("candidates", s.Candidates),
		slog.Int("malformed", s.Malformed),
		slog.Int("matched", s.Matched),
		slog.Int("skipped", s.Skipped),
		slog.Int("submitted", s.Submitted),
		slog.Int("fallbacks", s.Fallbacks),
		slog.Int("evicted", s.Evicted),
	)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the time source used for scheduling, records and eviction.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLimiter replaces the submission throttle.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// Pipeline is one run's worth of wiring. It is not safe for concurrent use.
type Pipeline struct {
	cfg       Config
	store     storage.Store
	adapters  []source.Adapter
	filter    *keyword.Filter
	submitter forum.Submitter
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a pipeline. Adapters run in the given order.
func New(cfg Config, store storage.Store, adapters []source.Adapter, filter *keyword.Filter, submitter forum.Submitter, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		store:     store,
		adapters:  adapters,
		filter:    filter,
		submitter: submitter,
		limiter:   rate.NewLimiter(rate.Every(cfg.Throttle), 1),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every scheduled source, then evicts stale records and saves
// the store. Fetch and extraction failures are logged and skipped; a
// submission or store failure aborts the run before eviction.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	now := p.now()

	for _, a := range p.adapters {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		log := p.logger.With(slog.String("source", a.Name()))
		if s, ok := a.(source.Scheduler); ok && !s.Scheduled(now) {
			log.Debug("not scheduled today", slog.String("weekday", now.Weekday().String()))
			continue
		}
		stats.Sources++
		if err := p.runSource(ctx, a, now, log, &stats); err != nil {
			return stats, err
		}
	}

	evicted, err := p.store.Evict(now, p.cfg.Retention)
	if err != nil {
		return stats, fmt.Errorf("pipeline: evict: %w", err)
	}
	stats.Evicted = evicted
	if err := p.store.Save(); err != nil {
		return stats, fmt.Errorf("pipeline: save: %w", err)
	}
	return stats, nil
}

// runSource returns only errors that must abort the run.
func (p *Pipeline) runSource(ctx context.Context, a source.Adapter, now time.Time, log *slog.Logger, stats *Stats) error {
	seq, err := a.Candidates(ctx, now)
	if err != nil {
		stats.SourceErrors++
		log.Warn("source skipped", slog.String("error", err.Error()))
		return nil
	}

	for c, err := range seq {
		if err != nil {
			stats.Malformed++
			log.Warn("item skipped", slog.String("error", err.Error()))
			continue
		}
		stats.Candidates++
		if err := p.process(ctx, c, now, log, stats); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, c models.Candidate, now time.Time, log *slog.Logger, stats *Stats) error {
	if !c.Digest && !p.filter.Matches(c.Title) {
		return nil
	}
	stats.Matched++

	posted, err := p.store.Contains(c.Title)
	if err != nil {
		return fmt.Errorf("pipeline: lookup %q: %w", c.Title, err)
	}
	if posted {
		stats.Skipped++
		log.Info("already posted", slog.String("title", c.Title))
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pipeline: throttle: %w", err)
	}
	url, err := p.submit(ctx, c, log, stats)
	if err != nil {
		return err
	}

	if err := p.store.Record(c.Title, c.Link, now); err != nil {
		return fmt.Errorf("pipeline: record %q: %w", c.Title, err)
	}
	if p.cfg.SaveEach {
		if err := p.store.Save(); err != nil {
			return fmt.Errorf("pipeline: save: %w", err)
		}
	}
	stats.Submitted++
	log.Info("submitted", slog.String("title", c.Title), slog.String("post", url))
	return nil
}

// submit posts c as a link, falling back once to a text post when the forum
// rejects the link form. Digest bodies are not URLs and go straight to text.
func (p *Pipeline) submit(ctx context.Context, c models.Candidate, log *slog.Logger, stats *Stats) (string, error) {
	if c.Digest {
		url, err := p.submitter.SubmitText(ctx, c.Title, c.Link)
		if err != nil {
			return "", fmt.Errorf("pipeline: %w: %q: %v", apperr.ErrSubmission, c.Title, err)
		}
		return url, nil
	}

	url, err := p.submitter.SubmitLink(ctx, c.Title, c.Link)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, apperr.ErrRejected) {
		return "", fmt.Errorf("pipeline: %w: %q: %v", apperr.ErrSubmission, c.Title, err)
	}

	stats.Fallbacks++
	log.Warn("link post rejected, retrying as text",
		slog.String("title", c.Title), slog.String("error", err.Error()))
	url, err = p.submitter.SubmitText(ctx, c.Title, c.Link)
	if err != nil {
		return "", fmt.Errorf("pipeline: %w: %q: %v", apperr.ErrSubmission, c.Title, err)
	}
	return url, nil
}

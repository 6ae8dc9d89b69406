package internal

import (
	"io"
	"time"

	"github.com/starford/planetfeed/internal/fetch"
	"github.com/starford/planetfeed/internal/forum"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	fetcher   fetch.Fetcher
	submitter forum.Submitter
	now       func() time.Time
	out       io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithFetcher replaces the HTTP page fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithSubmitter replaces the Reddit client. Credentials are not required when set.
func WithSubmitter(s forum.Submitter) Option {
	return func(a *application) {
		a.submitter = s
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithOutput sets where logs and reports are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/planetfeed/internal/forum"
	"github.com/starford/planetfeed/internal/keyword"
	"github.com/starford/planetfeed/internal/source"
	"github.com/starford/planetfeed/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	HTTP     HTTPConfig        `yaml:"http"`
	Forum    ForumConfig       `yaml:"forum"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
	Sources  []SourceConfig    `yaml:"sources"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Forum.Validate(); err != nil {
		return fmt.Errorf("forum: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		s := &c.Sources[i]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sources[%d] %q: %w", i, s.Name, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// StoreConfig locates the posted-article record store.
type StoreConfig struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(storage.DriverFile, storage.DriverSQLite)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Retention, validation.Required, validation.Min(time.Hour)),
	)
}

// HTTPConfig controls feed fetching.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second), validation.Max(2*time.Minute)),
	)
}

// ForumConfig holds the destination subreddit and Reddit script-app credentials.
type ForumConfig struct {
	Subreddit    string `yaml:"subreddit"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UserAgent    string `yaml:"user_agent"`
	TokenURL     string `yaml:"token_url"`
	APIURL       string `yaml:"api_url"`
}

// Validate validates everything but credentials, which only a posting run needs.
func (c *ForumConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Subreddit, validation.Required),
		validation.Field(&c.TokenURL, is.URL),
		validation.Field(&c.APIURL, is.URL),
	)
}

// ValidateCredentials checks that a submission can authenticate.
func (c *ForumConfig) ValidateCredentials() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.UserAgent, validation.Required),
	)
}

// Reddit converts the section into a forum client configuration.
func (c *ForumConfig) Reddit(timeout time.Duration) forum.Config {
	return forum.Config{
		Subreddit:    c.Subreddit,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Username:     c.Username,
		Password:     c.Password,
		UserAgent:    c.UserAgent,
		TokenURL:     c.TokenURL,
		APIURL:       c.APIURL,
		Timeout:      timeout,
	}
}

// PipelineConfig holds the filtering and submission policy.
type PipelineConfig struct {
	Keywords  []string      `yaml:"keywords"`
	MatchMode string        `yaml:"match_mode"`
	Throttle  time.Duration `yaml:"throttle"`
	// SaveEach persists the store after every submission instead of only at the end.
	SaveEach bool `yaml:"save_each"`
	// FailOnSourceError makes the process exit non-zero when any source failed.
	FailOnSourceError bool `yaml:"fail_on_source_error"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Keywords, validation.Required),
		validation.Field(&c.MatchMode, validation.In(keyword.ModeSubstring, keyword.ModeWord)),
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// SourceConfig describes one news source. Kind selects the adapter.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Disabled bool   `yaml:"disabled"`
	BaseURL  string `yaml:"base_url"`
	FeedURL  string `yaml:"feed_url"`

	ItemSelector  string `yaml:"item_selector"`
	TitleSelector string `yaml:"title_selector"`
	LinkSelector  string `yaml:"link_selector"`
	LinkAttr      string `yaml:"link_attr"`

	IdentifierSelector string `yaml:"identifier_selector"`
	TitlePrefix        string `yaml:"title_prefix"`
	StripPrefix        string `yaml:"strip_prefix"`
	Weekday            string `yaml:"weekday"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// Validate validates the source configuration. Empty kind means standard.
func (c *SourceConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = source.KindStandard
	}
	c.Weekday = strings.ToLower(strings.TrimSpace(c.Weekday))
	digest := c.Kind == source.KindDigest
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Kind, validation.In(source.KindStandard, source.KindDigest)),
		validation.Field(&c.FeedURL, validation.Required, is.URL),
		validation.Field(&c.ItemSelector, validation.When(!digest, validation.Required)),
		validation.Field(&c.TitleSelector, validation.When(digest, validation.Required)),
		validation.Field(&c.IdentifierSelector, validation.When(digest, validation.Required)),
		validation.Field(&c.Weekday, validation.When(digest, validation.Required, validation.By(validWeekday))),
	)
}

func validWeekday(v any) error {
	s, _ := v.(string)
	if _, ok := weekdays[s]; !ok {
		return fmt.Errorf("unknown weekday %q", s)
	}
	return nil
}

// Descriptor converts the section into an adapter descriptor.
func (c *SourceConfig) Descriptor() source.Descriptor {
	return source.Descriptor{
		Name:               c.Name,
		Kind:               c.Kind,
		BaseURL:            c.BaseURL,
		FeedURL:            c.FeedURL,
		ItemSelector:       c.ItemSelector,
		TitleSelector:      c.TitleSelector,
		LinkSelector:       c.LinkSelector,
		LinkAttr:           c.LinkAttr,
		IdentifierSelector: c.IdentifierSelector,
		TitlePrefix:        c.TitlePrefix,
		StripPrefix:        c.StripPrefix,
		Weekday:            weekdays[c.Weekday],
	}
}

// Descriptors returns the enabled sources in configuration order.
func (c *Config) Descriptors() []source.Descriptor {
	var out []source.Descriptor
	for i := range c.Sources {
		if c.Sources[i].Disabled {
			continue
		}
		out = append(out, c.Sources[i].Descriptor())
	}
	return out
}

// NewDefaultConfig returns a new Config with the stock planetary-science
// sources. Reddit credentials default to the REDDIT_* environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Store: StoreConfig{
			Driver:    storage.DriverFile,
			Path:      "planet_posted.json",
			Retention: 150 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:   20 * time.Second,
			UserAgent: "planetfeed/1.0 (+https://www.reddit.com/r/PlanetExoplanet)",
		},
		Forum: ForumConfig{
			Subreddit:    "PlanetExoplanet",
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
			UserAgent:    "linux:planetfeed:v1.0 (by /u/" + os.Getenv("REDDIT_USERNAME") + ")",
		},
		Pipeline: PipelineConfig{
			Keywords: []string{"planet", "mercury", "venus", "mars", "jupiter",
				"saturn", "uranus", "neptune", "pluto", "transit"},
			MatchMode: keyword.ModeSubstring,
			Throttle:  5 * time.Second,
			SaveEach:  true,
		},
		Sources: []SourceConfig{
			{
				Name:               "arxiv",
				Kind:               source.KindDigest,
				BaseURL:            "https://arxiv.org",
				FeedURL:            "https://arxiv.org/list/astro-ph.EP/pastweek?skip=0&show=25",
				TitleSelector:      ".list-title",
				IdentifierSelector: ".list-identifier",
				TitlePrefix:        "arXiv postings for",
				StripPrefix:        "Title:",
				Weekday:            "saturday",
			},
			{
				Name:         "astronomy",
				Kind:         source.KindStandard,
				BaseURL:      "http://www.astronomy.com",
				FeedURL:      "http://www.astronomy.com/news",
				ItemSelector: ".content.withImage",
			},
			{
				Name:         "space",
				Kind:         source.KindStandard,
				BaseURL:      "http://www.space.com",
				FeedURL:      "https://www.space.com/news?type=article|countdown|image_album|infographic|quiz|reference|wallpaper&section=science-astronomy",
				ItemSelector: ".pure-u-3-4.pure-u-md-2-3.pure-u-lg-2-3.list-text",
			},
			{
				Name:         "astrobites",
				Kind:         source.KindStandard,
				FeedURL:      "https://astrobites.org/category/daily-paper-summaries/",
				ItemSelector: ".post",
			},
		},
	}
}

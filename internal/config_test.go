package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/planetfeed/internal/source"
	pkgconfig "github.com/starford/planetfeed/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Store.Retention != 150*24*time.Hour {
		t.Errorf("retention = %v", cfg.Store.Retention)
	}
	descs := cfg.Descriptors()
	if len(descs) != 4 {
		t.Fatalf("descriptors = %d, want 4", len(descs))
	}
	if descs[0].Kind != source.KindDigest || descs[0].Weekday != time.Saturday {
		t.Errorf("arxiv descriptor = %+v", descs[0])
	}
}

func TestForumConfig_CredentialsRequiredSeparately(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Forum.ClientID = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("missing credentials must not fail general validation: %v", err)
	}
	if err := cfg.Forum.ValidateCredentials(); err == nil {
		t.Fatal("ValidateCredentials should reject an empty client id")
	}
}

func TestSourceConfig_EmptyKindDefaultsStandard(t *testing.T) {
	s := SourceConfig{Name: "a", FeedURL: "https://a.example/news", ItemSelector: ".post"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Kind != source.KindStandard {
		t.Errorf("kind = %q", s.Kind)
	}
}

func TestSourceConfig_StandardNeedsItemSelector(t *testing.T) {
	s := SourceConfig{Name: "a", FeedURL: "https://a.example/news"}
	if err := s.Validate(); err == nil {
		t.Fatal("standard source without item selector should fail")
	}
}

func TestSourceConfig_DigestWeekday(t *testing.T) {
	s := SourceConfig{
		Name: "d", Kind: source.KindDigest, FeedURL: "https://d.example/list",
		TitleSelector: ".t", IdentifierSelector: ".i", Weekday: " Friday ",
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Descriptor().Weekday != time.Friday {
		t.Errorf("weekday = %v", s.Descriptor().Weekday)
	}

	s.Weekday = "caturday"
	if err := s.Validate(); err == nil {
		t.Fatal("unknown weekday should fail")
	}
}

func TestConfig_DuplicateSourceName(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sources = append(cfg.Sources, cfg.Sources[1])
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate name", err)
	}
}

func TestConfig_DisabledSourceSkipped(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sources[2].Disabled = true
	for _, d := range cfg.Descriptors() {
		if d.Name == cfg.Sources[2].Name {
			t.Fatalf("disabled source %q still built", d.Name)
		}
	}
}

func TestConfig_InvalidStoreDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown store driver should fail")
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("REDDIT_PASSWORD_TEST", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
app:
  log_level: debug
store:
  driver: sqlite
  path: posted.db
  retention: 720h
forum:
  password: ${REDDIT_PASSWORD_TEST}
pipeline:
  keywords: [exoplanet]
  match_mode: word
  throttle: 2s
sources:
  - name: only
    feed_url: https://only.example/news
    item_selector: article
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Retention != 720*time.Hour {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Forum.Password != "s3cret" || cfg.Forum.Subreddit != "PlanetExoplanet" {
		t.Errorf("forum = %+v", cfg.Forum)
	}
	if cfg.Pipeline.Throttle != 2*time.Second || cfg.Pipeline.MatchMode != "word" {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if !cfg.Pipeline.SaveEach {
		t.Error("save_each default should survive a partial file")
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Kind != source.KindStandard {
		t.Errorf("sources = %+v", cfg.Sources)
	}
}

func TestShippedConfig(t *testing.T) {
	t.Setenv("REDDIT_USERNAME", "planetbot")
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(filepath.Join("..", "config", "config.yaml"), cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Retention != 150*24*time.Hour {
		t.Errorf("retention = %v", cfg.Store.Retention)
	}
	if cfg.Forum.UserAgent != "linux:planetfeed:v1.0 (by /u/planetbot)" {
		t.Errorf("user agent = %q", cfg.Forum.UserAgent)
	}
	if n := len(cfg.Descriptors()); n != 4 {
		t.Errorf("sources = %d, want 4", n)
	}
}

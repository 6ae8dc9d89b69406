// Package source turns heterogeneous news listing pages into a uniform
// stream of candidate articles. Each configured source is described by a
// Descriptor and served by one of a small set of adapter kinds.
package source

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/planetfeed/internal/fetch"
	"github.com/starford/planetfeed/internal/models"
)

// Adapter kinds.
const (
	KindStandard = "standard"
	KindDigest   = "digest"
)

// Adapter extracts candidates from one source.
type Adapter interface {
	Name() string
	// Candidates fetches the source and returns a single-pass sequence of
	// candidates in document order. Fetch failures are returned directly;
	// per-item extraction failures are yielded alongside a zero Candidate
	// and the consumer decides whether to continue.
	Candidates(ctx context.Context, now time.Time) (iter.Seq2[models.Candidate, error], error)
}

// Scheduler is implemented by adapters that only run on some days.
type Scheduler interface {
	Scheduled(now time.Time) bool
}

// Descriptor describes how to turn a fetched page into candidates.
type Descriptor struct {
	Name    string
	Kind    string
	BaseURL string
	FeedURL string

	// ItemSelector matches one node per article (standard kind).
	ItemSelector string
	// TitleSelector matches the heading inside an item, or the title nodes of a digest listing.
	TitleSelector string
	// LinkSelector matches the anchor inside an item or identifier node.
	LinkSelector string
	LinkAttr     string

	// IdentifierSelector matches the link-bearing nodes of a digest listing,
	// paired with title nodes by position.
	IdentifierSelector string
	// TitlePrefix precedes the run date in the digest post title.
	TitlePrefix string
	// StripPrefix is removed from each digest entry title.
	StripPrefix string
	Weekday     time.Weekday
}

// Build creates adapters for descs. Digest adapters come first, then
// standard adapters, each group in the given order.
func Build(descs []Descriptor, f fetch.Fetcher) ([]Adapter, error) {
	var digests, standards []Adapter
	for _, d := range descs {
		switch d.Kind {
		case KindDigest:
			digests = append(digests, NewDigest(d, f))
		case "", KindStandard:
			standards = append(standards, NewStandard(d, f))
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", d.Name, d.Kind)
		}
	}
	return append(digests, standards...), nil
}

func document(ctx context.Context, f fetch.Fetcher, d Descriptor) (*goquery.Document, error) {
	data, err := f.Fetch(ctx, d.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", d.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("source %s: parse html: %w", d.Name, err)
	}
	return doc, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

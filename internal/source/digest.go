package source

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/fetch"
	"github.com/starford/planetfeed/internal/models"
)

// Digest folds a whole listing into a single post on one weekday. Titles and
// identifiers are separate node lists paired by position.
type Digest struct {
	desc    Descriptor
	fetcher fetch.Fetcher
}

var (
	_ Adapter   = (*Digest)(nil)
	_ Scheduler = (*Digest)(nil)
)

// NewDigest returns a digest adapter.
func NewDigest(d Descriptor, f fetch.Fetcher) *Digest {
	d.LinkSelector = orDefault(d.LinkSelector, "a")
	d.LinkAttr = orDefault(d.LinkAttr, "href")
	return &Digest{desc: d, fetcher: f}
}

// Name returns the source name.
func (d *Digest) Name() string { return d.desc.Name }

// Scheduled reports whether now falls on the digest weekday.
func (d *Digest) Scheduled(now time.Time) bool {
	return now.Weekday() == d.desc.Weekday
}

// Title returns the post title for a run on now.
func (d *Digest) Title(now time.Time) string {
	return strings.TrimSpace(d.desc.TitlePrefix + " " + now.Format(time.DateOnly))
}

// Candidates fetches the listing and yields at most one candidate whose Link
// is the aggregated body. An empty listing yields nothing.
func (d *Digest) Candidates(ctx context.Context, now time.Time) (iter.Seq2[models.Candidate, error], error) {
	doc, err := document(ctx, d.fetcher, d.desc)
	if err != nil {
		return nil, err
	}

	titles := doc.Find(d.desc.TitleSelector)
	ids := doc.Find(d.desc.IdentifierSelector)
	if titles.Length() != ids.Length() {
		return nil, fmt.Errorf("source %s: %w: %d titles but %d identifiers",
			d.desc.Name, apperr.ErrMalformedFeed, titles.Length(), ids.Length())
	}

	var body strings.Builder
	for i := range titles.Length() {
		title := strings.TrimSpace(titles.Eq(i).Text())
		title = strings.TrimSpace(strings.TrimPrefix(title, d.desc.StripPrefix))

		href, ok := ids.Eq(i).Find(d.desc.LinkSelector).First().Attr(d.desc.LinkAttr)
		if !ok || href == "" {
			return nil, fmt.Errorf("source %s: %w: identifier %d has no link", d.desc.Name, apperr.ErrMalformedFeed, i+1)
		}
		fmt.Fprintf(&body, "%s\n%s\n\n", title, d.desc.BaseURL+href)
	}

	return func(yield func(models.Candidate, error) bool) {
		if body.Len() == 0 {
			return
		}
		yield(models.Candidate{
			Source: d.desc.Name,
			Title:  d.Title(now),
			Link:   body.String(),
			Digest: true,
		}, nil)
	}, nil
}

package source

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/fetch"
	"github.com/starford/planetfeed/internal/models"
)

// Standard handles listings where every article sits in one item node with
// a heading for its title and an anchor for its link.
type Standard struct {
	desc    Descriptor
	fetcher fetch.Fetcher
}

var _ Adapter = (*Standard)(nil)

// NewStandard returns a standard adapter. Heading and anchor selectors default
// to h2 and a[href].
func NewStandard(d Descriptor, f fetch.Fetcher) *Standard {
	d.TitleSelector = orDefault(d.TitleSelector, "h2")
	d.LinkSelector = orDefault(d.LinkSelector, "a")
	d.LinkAttr = orDefault(d.LinkAttr, "href")
	return &Standard{desc: d, fetcher: f}
}

// Name returns the source name.
func (s *Standard) Name() string { return s.desc.Name }

// Candidates fetches the listing and yields one candidate per item node.
func (s *Standard) Candidates(ctx context.Context, _ time.Time) (iter.Seq2[models.Candidate, error], error) {
	doc, err := document(ctx, s.fetcher, s.desc)
	if err != nil {
		return nil, err
	}
	items := doc.Find(s.desc.ItemSelector)

	return func(yield func(models.Candidate, error) bool) {
		for i := range items.Length() {
			c, err := s.extract(items.Eq(i))
			if err != nil {
				err = fmt.Errorf("source %s: item %d: %w", s.desc.Name, i+1, err)
			}
			if !yield(c, err) {
				return
			}
		}
	}, nil
}

func (s *Standard) extract(item *goquery.Selection) (models.Candidate, error) {
	heading := item.Find(s.desc.TitleSelector).First()
	if heading.Length() == 0 {
		return models.Candidate{}, fmt.Errorf("%w: no %q element", apperr.ErrMalformedItem, s.desc.TitleSelector)
	}
	title := strings.TrimSpace(heading.Text())
	if title == "" {
		return models.Candidate{}, fmt.Errorf("%w: empty title", apperr.ErrMalformedItem)
	}

	anchor := item.Find(s.desc.LinkSelector).First()
	href, ok := anchor.Attr(s.desc.LinkAttr)
	if !ok || href == "" {
		return models.Candidate{}, fmt.Errorf("%w: %q has no %s attribute", apperr.ErrMalformedItem, title, s.desc.LinkAttr)
	}

	return models.Candidate{
		Source: s.desc.Name,
		Title:  title,
		// Plain concatenation: relative hrefs must start with "/".
		Link: s.desc.BaseURL + href,
	}, nil
}

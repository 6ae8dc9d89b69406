package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/planetfeed/internal/keyword"
	"github.com/starford/planetfeed/internal/models"
	"github.com/starford/planetfeed/internal/source"
	"github.com/starford/planetfeed/internal/storage"
)

// SourceReport is the dry-run outcome for one source.
type SourceReport struct {
	Name       string
	Scheduled  bool
	Candidates int
	Malformed  int
	Matched    int
	Posted     int
	// Pending lists matched candidates that a run would submit.
	Pending []models.Candidate
	Err     error
}

// Preview fetches every adapter concurrently, at most parallel at a time,
// and reports what a run on now would do. It never submits or writes to the
// store. Per-source failures are reported in SourceReport.Err.
func Preview(ctx context.Context, adapters []source.Adapter, filter *keyword.Filter, store storage.Store, now time.Time, parallel int) ([]SourceReport, error) {
	reports := make([]SourceReport, len(adapters))
	matched := make([][]models.Candidate, len(adapters))

	g, gCtx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, a := range adapters {
		r := &reports[i]
		r.Name = a.Name()
		r.Scheduled = true
		if s, ok := a.(source.Scheduler); ok {
			r.Scheduled = s.Scheduled(now)
		}
		g.Go(func() error {
			seq, err := a.Candidates(gCtx, now)
			if err != nil {
				r.Err = err
				return nil
			}
			for c, err := range seq {
				if err != nil {
					r.Malformed++
					continue
				}
				r.Candidates++
				if c.Digest || filter.Matches(c.Title) {
					matched[i] = append(matched[i], c)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Store lookups stay on this goroutine.
	for i := range reports {
		r := &reports[i]
		r.Matched = len(matched[i])
		for _, c := range matched[i] {
			posted, err := store.Contains(c.Title)
			if err != nil {
				return nil, err
			}
			if posted {
				r.Posted++
				continue
			}
			r.Pending = append(r.Pending, c)
		}
	}
	return reports, nil
}

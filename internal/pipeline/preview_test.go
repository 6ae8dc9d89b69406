package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/models"
	"github.com/starford/planetfeed/internal/source"
	"github.com/starford/planetfeed/internal/testutil"
)

func TestPreview(t *testing.T) {
	store := testutil.TempStore(t)
	_ = store.Record("Mars posted", "l", saturday)

	digest := scheduledAdapter{
		fakeAdapter: &fakeAdapter{name: "arxiv", items: []models.Candidate{{Title: "digest", Link: "body", Digest: true}}},
		day:         time.Monday,
	}
	std := &fakeAdapter{
		name: "astronomy",
		items: []models.Candidate{
			{Title: "Mars posted", Link: "l"},
			{Title: "Jupiter new", Link: "l2"},
			{Title: "Quasar", Link: "l3"},
			{},
		},
		errs: map[int]error{3: apperr.ErrMalformedItem},
	}
	down := &fakeAdapter{name: "down", err: fmt.Errorf("x: %w", apperr.ErrFetch)}

	reports, err := Preview(context.Background(), []source.Adapter{digest, std, down}, keywords, store, saturday, 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("len = %d", len(reports))
	}

	if reports[0].Name != "arxiv" || reports[0].Scheduled {
		t.Errorf("digest report = %+v, want unscheduled", reports[0])
	}

	r := reports[1]
	if r.Candidates != 3 || r.Malformed != 1 || r.Matched != 2 || r.Posted != 1 {
		t.Errorf("astronomy report = %+v", r)
	}
	if len(r.Pending) != 1 || r.Pending[0].Title != "Jupiter new" {
		t.Errorf("pending = %+v", r.Pending)
	}

	if !errors.Is(reports[2].Err, apperr.ErrFetch) {
		t.Errorf("down report err = %v", reports[2].Err)
	}

	recs, _ := store.List()
	if len(recs) != 1 {
		t.Errorf("preview must not write to the store, got %d records", len(recs))
	}
}

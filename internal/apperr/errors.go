// Package apperr defines the error taxonomy shared by the fetch, source,
// storage and pipeline packages. Callers wrap these sentinels with %w and
// test for them with errors.Is.
package apperr

import "errors"

var (
	// ErrFetch marks a network or HTTP failure reaching a feed. Recovered per source.
	ErrFetch = errors.New("fetch failed")
	// ErrMalformedItem marks one listing item missing its heading or link. Recovered per item.
	ErrMalformedItem = errors.New("malformed item")
	// ErrMalformedFeed marks a digest listing whose parallel lists disagree. Recovered per source.
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrRejected marks a submission the forum refused in that form.
	ErrRejected = errors.New("submission rejected")
	// ErrSubmission is fatal: the candidate could not be posted in any form.
	ErrSubmission = errors.New("submission failed")
	// ErrStoreCorrupt is fatal: the persisted record store cannot be trusted.
	ErrStoreCorrupt = errors.New("record store corrupt")
	// ErrSourcesFailed is returned in strict mode when at least one source failed.
	ErrSourcesFailed = errors.New("one or more sources failed")
)

// Package models defines the domain types for planetfeed.
package models

import "time"

// Candidate is an article extracted from a source page that has not yet been
// checked against the posting history.
type Candidate struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	// Link is the article URL, or the aggregated body text for a digest.
	Link string `json:"link"`
	// Digest candidates are posted unconditionally, without keyword filtering.
	Digest bool `json:"digest,omitempty"`
}

// Record is the stored trace of a successful submission. Title is the identity key.
type Record struct {
	Title    string    `json:"title"`
	Link     string    `json:"link"`
	PostedAt time.Time `json:"posted_at"`
}

// Age returns how long ago the record was posted relative to now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.PostedAt)
}

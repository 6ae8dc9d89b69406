// Package storage persists the history of posted articles used for
// deduplication and retention.
package storage

import (
	"fmt"
	"time"

	"github.com/starford/planetfeed/internal/models"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store is the record store consulted and updated by the submission pipeline.
// Implementations are not safe for use by concurrent processes.
type Store interface {
	// Contains reports whether title has been posted. Link and timestamp are not compared.
	Contains(title string) (bool, error)
	// Record inserts or overwrites the entry for title.
	Record(title, link string, now time.Time) error
	// Evict removes every entry older than retention and returns how many were removed.
	Evict(now time.Time, retention time.Duration) (int, error)
	// Save persists the full mapping.
	Save() error
	// List returns all records, newest first.
	List() ([]models.Record, error)
	Close() error
}

// Open loads the store at path using the named driver. An empty driver
// selects the JSON file store.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverFile:
		return OpenFile(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// expired reports whether a record posted at postedAt is past retention.
func expired(postedAt, now time.Time, retention time.Duration) bool {
	return now.Sub(postedAt) > retention
}

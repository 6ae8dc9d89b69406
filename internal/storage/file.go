package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/models"
)

const fileFormatVersion = 1

type fileRecord struct {
	Link     string `json:"link"`
	PostedAt int64  `json:"posted_at"`
}

// fileState is the on-disk layout. Checksum covers the compact JSON of Records.
type fileState struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Records  json.RawMessage `json:"records"`
}

// FileStore keeps the mapping in memory and persists it as a single JSON file.
type FileStore struct {
	path    string
	records map[string]fileRecord
}

var _ Store = (*FileStore)(nil)

// OpenFile loads the store at path. A missing file yields an empty store;
// a file that exists but cannot be decoded or fails its checksum is
// reported as apperr.ErrStoreCorrupt.
func OpenFile(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	s := &FileStore{path: abs, records: make(map[string]fileRecord)}

	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", abs, err)
	}
	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("storage: %s: %w: %v", abs, apperr.ErrStoreCorrupt, err)
	}
	return s, nil
}

func (s *FileStore) decode(data []byte) error {
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if st.Version != fileFormatVersion {
		return fmt.Errorf("unsupported version %d", st.Version)
	}
	if len(st.Records) == 0 {
		return errors.New("missing records")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, st.Records); err != nil {
		return err
	}
	if got := checksum(compact.Bytes()); got != st.Checksum {
		return fmt.Errorf("checksum mismatch: stored %q, computed %q", st.Checksum, got)
	}
	return json.Unmarshal(st.Records, &s.records)
}

// Path returns the absolute location of the store file.
func (s *FileStore) Path() string { return s.path }

// Contains reports whether title has been posted.
func (s *FileStore) Contains(title string) (bool, error) {
	_, ok := s.records[title]
	return ok, nil
}

// Record inserts or overwrites title in memory. Call Save to persist.
func (s *FileStore) Record(title, link string, now time.Time) error {
	s.records[title] = fileRecord{Link: link, PostedAt: now.Unix()}
	return nil
}

// Evict drops records whose age exceeds retention.
func (s *FileStore) Evict(now time.Time, retention time.Duration) (int, error) {
	n := 0
	for title, r := range s.records {
		if expired(time.Unix(r.PostedAt, 0), now, retention) {
			delete(s.records, title)
			n++
		}
	}
	return n, nil
}

// List returns all records, newest first.
func (s *FileStore) List() ([]models.Record, error) {
	out := make([]models.Record, 0, len(s.records))
	for title, r := range s.records {
		out = append(out, models.Record{Title: title, Link: r.Link, PostedAt: time.Unix(r.PostedAt, 0)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].Title < out[j].Title
		}
		return out[i].PostedAt.After(out[j].PostedAt)
	})
	return out, nil
}

// Save atomically replaces the store file: tmp file → fsync → rename.
func (s *FileStore) Save() error {
	records, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("storage: encode records: %w", err)
	}
	data, err := json.MarshalIndent(fileState{
		Version:  fileFormatVersion,
		Checksum: checksum(records),
		Records:  records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".planetfeed-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Close is a no-op; unsaved changes are discarded.
func (s *FileStore) Close() error { return nil }

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

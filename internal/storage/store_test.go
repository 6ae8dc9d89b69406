package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/planetfeed/internal/apperr"
)

var (
	now       = time.Unix(1_700_000_000, 0)
	retention = 150 * 24 * time.Hour
)

// backends opens a fresh store of every driver under a temp dir.
func backends(t *testing.T) map[string]func(path string) (Store, error) {
	t.Helper()
	return map[string]func(string) (Store, error){
		DriverFile:   func(p string) (Store, error) { return OpenFile(p) },
		DriverSQLite: func(p string) (Store, error) { return OpenSQLite(p) },
	}
}

func openTemp(t *testing.T, open func(string) (Store, error)) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posted.db")
	s, err := open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestContainsAfterRecord(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := openTemp(t, open)
			ok, err := s.Contains("Juno sees Jupiter")
			if err != nil {
				t.Fatalf("Contains: %v", err)
			}
			if ok {
				t.Fatal("empty store should not contain title")
			}
			if err := s.Record("Juno sees Jupiter", "https://example.com/juno", now); err != nil {
				t.Fatalf("Record: %v", err)
			}
			ok, _ = s.Contains("Juno sees Jupiter")
			if !ok {
				t.Error("title should be present right after Record")
			}
			ok, _ = s.Contains("juno sees jupiter")
			if ok {
				t.Error("lookup must be exact, not case-folded")
			}
		})
	}
}

func TestRecordOverwrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := openTemp(t, open)
			_ = s.Record("Mars rover", "https://a/1", now.Add(-time.Hour))
			_ = s.Record("Mars rover", "https://a/2", now)
			recs, err := s.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(recs) != 1 {
				t.Fatalf("len = %d, want 1", len(recs))
			}
			if recs[0].Link != "https://a/2" || !recs[0].PostedAt.Equal(now) {
				t.Errorf("record = %+v", recs[0])
			}
		})
	}
}

func TestEvictBoundary(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := openTemp(t, open)
			_ = s.Record("stale", "l1", now.Add(-retention-time.Second))
			_ = s.Record("fresh", "l2", now.Add(-retention+time.Second))

			n, err := s.Evict(now, retention)
			if err != nil {
				t.Fatalf("Evict: %v", err)
			}
			if n != 1 {
				t.Errorf("evicted = %d, want 1", n)
			}
			if ok, _ := s.Contains("stale"); ok {
				t.Error("stale record should be evicted")
			}
			if ok, _ := s.Contains("fresh"); !ok {
				t.Error("fresh record should survive")
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, path := openTemp(t, open)
			_ = s.Record("Venus transit", "https://v/1", now)
			_ = s.Record("Saturn rings", "https://s/1", now.Add(time.Minute))
			if err := s.Save(); err != nil {
				t.Fatalf("Save: %v", err)
			}
			s.Close()

			reopened, err := open(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()
			recs, err := reopened.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("len = %d, want 2", len(recs))
			}
			if recs[0].Title != "Saturn rings" || recs[1].Title != "Venus transit" {
				t.Errorf("order = %q, %q; want newest first", recs[0].Title, recs[1].Title)
			}
		})
	}
}

func TestOpenFile_Missing(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	recs, _ := s.List()
	if len(recs) != 0 {
		t.Errorf("expected empty store, got %d records", len(recs))
	}
}

func TestOpenFile_Corrupt(t *testing.T) {
	cases := map[string]string{
		"garbage":  "\x80\x04\x95 not json",
		"empty":    "",
		"version":  `{"version":9,"checksum":"","records":{}}`,
		"checksum": `{"version":1,"checksum":"deadbeef","records":{"a":{"link":"b","posted_at":1}}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "posted.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := OpenFile(path)
			if !errors.Is(err, apperr.ErrStoreCorrupt) {
				t.Errorf("err = %v, want ErrStoreCorrupt", err)
			}
		})
	}
}

func TestFileSave_NoLeftoverTemp(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(filepath.Join(dir, "posted.json"))
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Record("Pluto flyby", "https://p/1", now)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Overwrite to exercise rename over an existing file.
	_ = s.Record("Neptune storm", "https://n/1", now)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, ".planetfeed-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
	data, _ := os.ReadFile(s.Path())
	if !strings.Contains(string(data), "Neptune storm") {
		t.Errorf("saved file missing record: %s", data)
	}
}

func TestOpenSQLite_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted.db")
	junk := strings.Repeat("this is definitely not sqlite ", 100)
	if err := os.WriteFile(path, []byte(junk), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenSQLite(path)
	if !errors.Is(err, apperr.ErrStoreCorrupt) {
		t.Errorf("err = %v, want ErrStoreCorrupt", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("bolt", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

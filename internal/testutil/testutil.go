// Package testutil provides shared test helpers for fixture servers and stores.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planetfeed/internal/storage"
)

// FeedServer starts an HTTP server that serves each page body at its path.
// Unknown paths return 404. The server is closed on test cleanup.
func FeedServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	for path, body := range pages {
		r.Get(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, body)
		})
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// TempStore opens a JSON file store in a temporary directory.
func TempStore(t *testing.T) *storage.FileStore {
	t.Helper()
	s, err := storage.OpenFile(filepath.Join(t.TempDir(), "planet_posted.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

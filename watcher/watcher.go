// Package watcher observes a download directory and detects newly created,
// size-stabilized export files.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/vahanfetch/models"
)

// Watcher polls a directory for a new file matching the accepted extension
// set. Intervals and the stabilization sample count are exported so tests
// can run with millisecond timings.
type Watcher struct {
	// Extensions is the accepted set of file suffixes (lowercase, with dot).
	Extensions []string

	// PollInterval is the directory re-scan interval.
	PollInterval time.Duration

	// StableInterval is the pause between size samples of a candidate file.
	StableInterval time.Duration

	// StableSamples is how many consecutive identical size readings are
	// required before a file is declared complete. Guards against reporting
	// a still-downloading partial file.
	StableSamples int
}

// New returns a Watcher with production defaults.
func New() *Watcher {
	return &Watcher{
		Extensions:     []string{".xls", ".xlsx", ".csv"},
		PollInterval:   500 * time.Millisecond,
		StableInterval: 500 * time.Millisecond,
		StableSamples:  3,
	}
}

// Snapshot records the directory's current contents so a later Await can
// distinguish the cycle's own new file from leftovers of earlier cycles.
func (w *Watcher) Snapshot(dir string) map[string]struct{} {
	before := make(map[string]struct{})
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("download dir snapshot failed", "dir", dir, "error", err)
		return before
	}
	for _, e := range entries {
		before[e.Name()] = struct{}{}
	}
	return before
}

// Await polls dir until a file absent from before and matching the accepted
// extensions appears and its size stabilizes, or until timeout elapses.
// Returns the record and true on success; a zero record and false on timeout
// or context cancellation. Await never returns an error.
func (w *Watcher) Await(ctx context.Context, dir string, before map[string]struct{}, timeout time.Duration) (models.DownloadRecord, bool) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			slog.Warn("download dir scan failed", "dir", dir, "error", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, seen := before[e.Name()]; seen {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !w.accepts(ext) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if size, ok := w.stabilize(ctx, path, deadline); ok {
				return models.DownloadRecord{
					Path:    path,
					Size:    size,
					Kind:    strings.TrimPrefix(ext, "."),
					FoundAt: time.Now(),
				}, true
			}
		}
		if !sleepUntil(ctx, w.PollInterval, deadline) {
			return models.DownloadRecord{}, false
		}
	}
	return models.DownloadRecord{}, false
}

// stabilize samples the file's size until StableSamples consecutive readings
// agree or the deadline passes.
func (w *Watcher) stabilize(ctx context.Context, path string, deadline time.Time) (int64, bool) {
	prevSize := int64(-1)
	stable := 0
	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err != nil {
			// File vanished mid-download (browser renamed a temp file).
			return 0, false
		}
		if info.Size() == prevSize {
			stable++
		} else {
			stable = 1
		}
		prevSize = info.Size()
		if stable >= w.StableSamples {
			return prevSize, true
		}
		if !sleepUntil(ctx, w.StableInterval, deadline) {
			return 0, false
		}
	}
	return 0, false
}

func (w *Watcher) accepts(ext string) bool {
	for _, e := range w.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// sleepUntil sleeps for d, capped at the deadline. Returns false when the
// context is done.
func sleepUntil(ctx context.Context, d time.Duration, deadline time.Time) bool {
	if remaining := time.Until(deadline); d > remaining {
		d = remaining
	}
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

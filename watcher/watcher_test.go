package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastWatcher() *Watcher {
	return &Watcher{
		Extensions:     []string{".xls", ".xlsx", ".csv"},
		PollInterval:   time.Millisecond,
		StableInterval: time.Millisecond,
		StableSamples:  3,
	}
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestAwaitDetectsStableFile(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()
	before := w.Snapshot(dir)

	path := writeFile(t, dir, "reportTable.xlsx", 2048)

	rec, ok := w.Await(context.Background(), dir, before, 200*time.Millisecond)
	if !ok {
		t.Fatal("Await() = false, want the completed file")
	}
	if rec.Path != path {
		t.Errorf("path = %q, want %q", rec.Path, path)
	}
	if rec.Size != 2048 {
		t.Errorf("size = %d, want 2048", rec.Size)
	}
	if rec.Kind != "xlsx" {
		t.Errorf("kind = %q, want xlsx", rec.Kind)
	}
	if rec.FoundAt.IsZero() {
		t.Error("FoundAt not set")
	}
}

func TestAwaitIgnoresPreexistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leftover.xls", 100)
	w := fastWatcher()
	before := w.Snapshot(dir)

	if _, ok := w.Await(context.Background(), dir, before, 20*time.Millisecond); ok {
		t.Fatal("Await() = true for a file that predates the cycle")
	}
}

func TestAwaitIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()
	before := w.Snapshot(dir)

	writeFile(t, dir, "export.crdownload", 100)
	writeFile(t, dir, "notes.txt", 100)

	if _, ok := w.Await(context.Background(), dir, before, 20*time.Millisecond); ok {
		t.Fatal("Await() = true for non-spreadsheet files")
	}
}

func TestAwaitGrowingFileNeverReported(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()
	w.StableInterval = 10 * time.Millisecond
	before := w.Snapshot(dir)

	path := filepath.Join(dir, "partial.xls")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	// Keep appending faster than the watcher samples so the size never
	// produces enough consecutive identical readings.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		chunk := make([]byte, 64)
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
				f.Write(chunk)
			}
		}
	}()
	t.Cleanup(func() { close(stop); <-done })

	if _, ok := w.Await(context.Background(), dir, before, 100*time.Millisecond); ok {
		t.Fatal("Await() = true for a file that never stopped growing")
	}
}

func TestAwaitTimesOutEmpty(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()

	start := time.Now()
	rec, ok := w.Await(context.Background(), dir, w.Snapshot(dir), 30*time.Millisecond)
	if ok {
		t.Fatal("Await() = true on an empty directory")
	}
	if rec.Path != "" {
		t.Errorf("record = %+v, want zero value", rec)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Await() took %v, should respect its timeout", elapsed)
	}
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := w.Await(ctx, dir, w.Snapshot(dir), 10*time.Second); ok {
		t.Fatal("Await() = true under a cancelled context")
	}
}

func TestSnapshotMissingDir(t *testing.T) {
	w := fastWatcher()
	before := w.Snapshot(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(before) != 0 {
		t.Fatalf("Snapshot() = %v, want empty for a missing directory", before)
	}
}

func TestAcceptsIsCaseInsensitiveViaAwait(t *testing.T) {
	dir := t.TempDir()
	w := fastWatcher()
	before := w.Snapshot(dir)

	writeFile(t, dir, "REPORT.XLS", 512)

	rec, ok := w.Await(context.Background(), dir, before, 200*time.Millisecond)
	if !ok {
		t.Fatal("Await() = false, uppercase extensions must still match")
	}
	if rec.Kind != "xls" {
		t.Errorf("kind = %q, want xls", rec.Kind)
	}
}

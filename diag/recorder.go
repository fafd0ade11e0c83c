// Package diag captures failure snapshots (screenshot + page markup) for
// offline debugging. Recording is best-effort: a diagnostic failure must
// never mask the failure that triggered it.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Source is the page-state capture surface the recorder needs from the
// browser session.
type Source interface {
	Screenshot(ctx context.Context) ([]byte, error)
	Markup(ctx context.Context) (string, error)
}

// Recorder writes reason-tagged, timestamped snapshots into a dedicated
// directory. Snapshots are write-once; nothing reads them back.
type Recorder struct {
	dir string
	seq atomic.Uint64 // disambiguates captures within the same second
}

// NewRecorder creates a Recorder writing into dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Dir returns the snapshot directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Capture saves the current visual state and full page markup, tagged with
// reason and a timestamp. All errors are logged and swallowed.
func (r *Recorder) Capture(ctx context.Context, src Source, reason string) {
	ts := time.Now().Format("20060102_150405")
	base := filepath.Join(r.dir, fmt.Sprintf("%s_%s_%03d", sanitize(reason), ts, r.seq.Add(1)))

	if png, err := src.Screenshot(ctx); err != nil {
		slog.Warn("diagnostic screenshot failed", "reason", reason, "error", err)
	} else if err := os.WriteFile(base+".png", png, 0o644); err != nil {
		slog.Warn("diagnostic screenshot write failed", "path", base+".png", "error", err)
	}

	if markup, err := src.Markup(ctx); err != nil {
		slog.Warn("diagnostic markup dump failed", "reason", reason, "error", err)
	} else if err := os.WriteFile(base+".html", []byte(markup), 0o644); err != nil {
		slog.Warn("diagnostic markup write failed", "path", base+".html", "error", err)
	}

	slog.Info("diagnostic snapshot saved", "reason", reason, "base", base)
}

// sanitize makes a reason string safe as a filename component.
func sanitize(reason string) string {
	reason = strings.TrimSpace(reason)
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return replacer.Replace(reason)
}

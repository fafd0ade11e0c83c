package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/use-agent/vahanfetch/config"
	"github.com/use-agent/vahanfetch/diag"
	"github.com/use-agent/vahanfetch/fetcher"
	"github.com/use-agent/vahanfetch/session"
	"github.com/use-agent/vahanfetch/watcher"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	_ = godotenv.Load() // optional .env; env vars win either way
	headless := flag.Bool("headless", false, "force the browser headless (same effect as VAHAN_HEADLESS=true)")
	flag.Parse()

	cfg := config.Load()
	if *headless {
		cfg.Browser.Headless = true
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("vahanfetch starting",
		"url", cfg.Fetch.URL,
		"targets", cfg.Fetch.Targets,
		"headless", cfg.Browser.Headless,
		"downloadDir", cfg.Fetch.DownloadDir,
	)

	// ── 3. Validate the selector tables before touching a browser ───
	if err := fetcher.ValidateCandidates(); err != nil {
		slog.Error("selector candidate table invalid", "error", err)
		return
	}

	if err := os.MkdirAll(cfg.Fetch.DownloadDir, 0o755); err != nil {
		slog.Error("cannot create download directory", "dir", cfg.Fetch.DownloadDir, "error", err)
		return
	}
	if err := os.MkdirAll(cfg.Fetch.SnapshotDir, 0o755); err != nil {
		slog.Error("cannot create snapshot directory", "dir", cfg.Fetch.SnapshotDir, "error", err)
		return
	}

	// ── 4. Launch the browser session ────────────────────────────────
	sess, err := session.New(cfg.Browser, cfg.Fetch.DownloadDir)
	if err != nil {
		// Per-target failures are already summarized below; a session that
		// never came up is reported the same non-fatal way.
		slog.Error("failed to start browser session", "error", err)
		return
	}
	defer sess.Close()

	// ── 5. Assemble the retrieval pipeline ───────────────────────────
	rec := diag.NewRecorder(cfg.Fetch.SnapshotDir)
	cycle := fetcher.NewCycle(sess, watcher.New(), rec, cfg.Fetch, cfg.Browser.Proxy)
	sched := fetcher.NewScheduler(cycle, cfg.Fetch)

	// ── 6. Run every target to a terminal state ─────────────────────
	summary := sched.Run(context.Background())

	// ── 7. Report ────────────────────────────────────────────────────
	for _, r := range summary.Records {
		slog.Info("export saved", "path", r.Path, "bytes", r.Size, "kind", r.Kind)
	}
	for _, label := range summary.Failed {
		slog.Error("target failed after all attempts", "label", label)
	}
	if summary.SnapshotDir != "" {
		slog.Info("diagnostic snapshots available", "dir", summary.SnapshotDir)
	}
	slog.Info("vahanfetch finished",
		"succeeded", len(summary.Records),
		"failed", len(summary.Failed),
	)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

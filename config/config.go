package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Fetch   FetchConfig
	Log     LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless. The dashboard's
	// export flow is flaky under headless Chrome, so visible is the default.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional proxy URL for all browser traffic.
	Proxy string
}

// FetchConfig controls the retrieval run.
type FetchConfig struct {
	// URL is the dashboard's root report view, reloaded fresh every cycle.
	URL string

	// DownloadDir receives the exported spreadsheet files.
	DownloadDir string

	// SnapshotDir receives failure screenshots and page-source dumps.
	SnapshotDir string

	// Targets is the ordered list of category labels to retrieve.
	Targets []string

	// MaxAttempts is the per-target cycle attempt limit.
	MaxAttempts int // default: 3

	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration // default: 2s

	// CandidateTimeout is the independent wait budget for each selector
	// candidate during resolution.
	CandidateTimeout time.Duration // default: 8s

	// SettleDelay is the fixed pause after navigation and after choosing a
	// category, covering render work with no observable completion signal.
	SettleDelay time.Duration // default: 2s

	// RefreshSettle is the pause after the refresh control fires, while
	// charts and the export table rebuild.
	RefreshSettle time.Duration // default: 3s

	// DownloadTimeout bounds the wait for a new stabilized file.
	DownloadTimeout time.Duration // default: 25s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:   envBoolOr("VAHAN_HEADLESS", false),
			NoSandbox:  envBoolOr("VAHAN_NO_SANDBOX", false),
			BrowserBin: os.Getenv("VAHAN_BROWSER_BIN"),
			Proxy:      os.Getenv("VAHAN_PROXY"),
		},
		Fetch: FetchConfig{
			URL:              envOr("VAHAN_URL", "https://vahan.parivahan.gov.in/vahan4dashboard/vahan/view/reportview.xhtml"),
			DownloadDir:      envOr("VAHAN_DOWNLOAD_DIR", "data/raw"),
			SnapshotDir:      envOr("VAHAN_SNAPSHOT_DIR", "data/raw/snapshots"),
			Targets:          envSliceOr("VAHAN_TARGETS", []string{"Maker", "Vehicle Category"}),
			MaxAttempts:      envIntOr("VAHAN_MAX_ATTEMPTS", 3),
			RetryDelay:       envDurationOr("VAHAN_RETRY_DELAY", 2*time.Second),
			CandidateTimeout: envDurationOr("VAHAN_CANDIDATE_TIMEOUT", 8*time.Second),
			SettleDelay:      envDurationOr("VAHAN_SETTLE_DELAY", 2*time.Second),
			RefreshSettle:    envDurationOr("VAHAN_REFRESH_SETTLE", 3*time.Second),
			DownloadTimeout:  envDurationOr("VAHAN_DOWNLOAD_TIMEOUT", 25*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("VAHAN_LOG_LEVEL", "info"),
			Format: envOr("VAHAN_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

// Package session wraps a single rod-driven browser in the narrow surface
// the fetcher consumes. One session is the run's only shared mutable
// resource: it is owned by the caller for the run's lifetime and torn down
// exactly once via Close.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/vahanfetch/config"
	"github.com/use-agent/vahanfetch/fetcher"
	"github.com/use-agent/vahanfetch/models"
	"github.com/ysmood/gson"
)

// Session is the rod-backed implementation of fetcher.Session.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
}

// New launches the browser, opens the single page the whole run drives, and
// binds the download directory. Chrome requires the download path to be
// absolute.
func New(cfg config.BrowserConfig, downloadDir string) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1600,1000")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewFetchError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	absDir, err := filepath.Abs(downloadDir)
	if err != nil {
		absDir = downloadDir
	}
	if err := (proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: absDir,
	}).Call(browser); err != nil {
		slog.Warn("failed to bind download directory", "dir", absDir, "error", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	// Stealth JS must be installed before the first navigation.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	return &Session{browser: browser, page: page}, nil
}

// Navigate loads url fresh and lets the DOM settle best-effort.
func (s *Session) Navigate(ctx context.Context, u string) error {
	p := s.page.Context(ctx)

	s.setReferer(p, u)

	if err := p.Navigate(u); err != nil {
		return err
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}
	return nil
}

// setReferer makes the visit look like it came from a search result.
func (s *Session) setReferer(p *rod.Page, target string) {
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	headers := proto.NetworkHeaders{
		"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(p)
}

// Find locates an element by the candidate's strategy and waits for it to
// become visible, all within timeout. An exhausted wait maps to
// models.ErrNotFound; any other error is returned raw as a session fault.
func (s *Session) Find(ctx context.Context, kind models.SelectorKind, expr string, timeout time.Duration) (fetcher.Element, error) {
	p := s.page.Context(ctx).Timeout(timeout)

	var el *rod.Element
	var err error
	switch kind {
	case models.ByID:
		// Attribute form: JSF ids carry colons, which break #id selectors.
		el, err = p.Element(fmt.Sprintf("[id=%q]", expr))
	case models.ByCSS:
		el, err = p.Element(expr)
	case models.ByXPath:
		el, err = p.ElementX(expr)
	default:
		return nil, fmt.Errorf("unknown selector kind: %s", kind)
	}
	if err != nil {
		return nil, asNotFound(err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, asNotFound(err)
	}
	// Drop the lookup deadline so later interaction with the handle is not
	// bounded by the resolution budget.
	return &element{el: el.CancelTimeout()}, nil
}

// asNotFound maps wait exhaustion to the resolver's sentinel and passes
// genuine faults through.
func asNotFound(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, &rod.ElementNotFoundError{}) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	return err
}

// Markup returns the rendered page HTML.
func (s *Session) Markup(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Screenshot captures the full page as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(true, nil)
}

// CookieHeader renders the page's cookies as a Cookie header value for the
// direct HTTP download path.
func (s *Session) CookieHeader(ctx context.Context) (string, error) {
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; "), nil
}

// Close kills the browser process. Safe to call exactly once on every exit
// path; "already closed" errors are swallowed.
func (s *Session) Close() {
	slog.Info("session shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		if !strings.Contains(err.Error(), "closed") {
			slog.Warn("browser close failed", "error", err)
		}
	}
	slog.Info("session shutdown complete")
}

// element adapts *rod.Element to fetcher.Element.
type element struct {
	el *rod.Element
}

func (e *element) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

func (e *element) Activate() error {
	_, err := e.el.Eval("() => this.click()")
	return err
}

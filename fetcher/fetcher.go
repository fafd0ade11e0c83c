// Package fetcher implements the retrieval engine that drives a browser
// session through the dashboard's export flow: open the category selector,
// choose a category, refresh, trigger the export, and wait for the file.
//
// The dashboard is treated as an adversarial environment: element ids drift
// between deployments, overlays intercept clicks, and a triggered export can
// silently produce nothing. Every step therefore degrades through ranked
// fallbacks instead of trusting a single selector or click.
package fetcher

import (
	"context"
	"time"

	"github.com/use-agent/vahanfetch/models"
)

// Element is a resolved, interactable page element handle.
type Element interface {
	// Click performs a native pointer click.
	Click() error

	// ScrollIntoView brings the element into the viewport.
	ScrollIntoView() error

	// Activate fires the element's click handler from script, bypassing
	// visibility and occlusion checks.
	Activate() error
}

// Session is the remote browser session surface the engine consumes. The
// rod-backed implementation lives in the session package; tests substitute
// scripted fakes.
type Session interface {
	// Navigate loads url fresh, discarding in-page state.
	Navigate(ctx context.Context, url string) error

	// Find locates an element by the given strategy, waiting up to timeout
	// for it to become interactable. Returns models.ErrNotFound when the
	// wait is exhausted; any other error is a session fault.
	Find(ctx context.Context, kind models.SelectorKind, expr string, timeout time.Duration) (Element, error)

	// Markup returns the current rendered page HTML.
	Markup(ctx context.Context) (string, error)

	// Screenshot captures the current visual state as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// CookieHeader renders the session's cookies as a Cookie header value.
	CookieHeader(ctx context.Context) (string, error)
}

// sleepCtx pauses for d or until ctx is done. Used only for genuinely
// unobservable render settle time; observable conditions use bounded polls.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

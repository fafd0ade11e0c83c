package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/use-agent/vahanfetch/config"
	"github.com/use-agent/vahanfetch/diag"
	"github.com/use-agent/vahanfetch/models"
	"github.com/use-agent/vahanfetch/watcher"
)

// Cycle runs one full per-target retrieval pass, from fresh page load
// through download confirmation. Step failures never escape Run: they
// trigger a diagnostic snapshot and come back as a typed FetchError so the
// scheduler can decide whether another attempt is worth it.
type Cycle struct {
	sess   Session
	watch  *watcher.Watcher
	rec    *diag.Recorder
	direct *directFetcher
	cfg    config.FetchConfig
}

// NewCycle assembles a cycle orchestrator around a live session.
func NewCycle(sess Session, w *watcher.Watcher, rec *diag.Recorder, cfg config.FetchConfig, proxy string) *Cycle {
	return &Cycle{
		sess:   sess,
		watch:  w,
		rec:    rec,
		direct: newDirectFetcher(proxy),
		cfg:    cfg,
	}
}

// Run executes the state sequence NavigatePage, OpenCategorySelector,
// ChooseCategory, TriggerRefresh, TriggerExport, AwaitDownload for one
// target label. Returns the download record on success. Panics from the
// session layer are recovered here and mapped to an UNEXPECTED_FAULT — a
// cycle never propagates an unhandled fault past its own boundary.
func (c *Cycle) Run(ctx context.Context, label string) (record models.DownloadRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cycle panicked", "target", label, "panic", r)
			c.rec.Capture(ctx, c.sess, "unexpected_"+label)
			record = models.DownloadRecord{}
			err = models.NewFetchError(models.ErrCodeUnexpectedFault, fmt.Sprintf("panic during cycle: %v", r), nil)
		}
	}()

	// Pre-cycle snapshot: anything already in the download directory is a
	// leftover, not this cycle's artifact.
	before := c.watch.Snapshot(c.cfg.DownloadDir)

	// NavigatePage — always a fresh load; reusing in-page state across
	// cycles leaves stale element references behind.
	if nerr := c.sess.Navigate(ctx, c.cfg.URL); nerr != nil {
		return c.abort(ctx, "navigate_failed", models.ErrCodeNavigation, "dashboard navigation failed", nerr)
	}
	slog.Info("page loaded", "target", label)
	sleepCtx(ctx, c.cfg.SettleDelay)

	// OpenCategorySelector
	if serr := c.openCategorySelector(ctx); serr != nil {
		return c.abort(ctx, "no_category_control", stepCode(serr), "category selector did not open", serr)
	}
	sleepCtx(ctx, c.cfg.SettleDelay/4)

	// ChooseCategory
	if serr := c.chooseCategory(ctx, label); serr != nil {
		return c.abort(ctx, "no_option_"+label, stepCode(serr), "category option not clickable: "+label, serr)
	}
	sleepCtx(ctx, c.cfg.SettleDelay/2)

	// TriggerRefresh — best-effort; some dashboard states auto-refresh on
	// category change, so an unresolved control is a warning, not a failure.
	if rerr := c.triggerRefresh(ctx); rerr != nil {
		return c.abort(ctx, "refresh_fault_"+label, models.ErrCodeUnexpectedFault, "refresh step faulted", rerr)
	}
	sleepCtx(ctx, c.cfg.RefreshSettle)

	// TriggerExport
	if serr := c.triggerExport(ctx); serr != nil {
		return c.abort(ctx, "no_export_"+label, stepCode(serr), "export trigger failed", serr)
	}

	// AwaitDownload
	rec, ok := c.watch.Await(ctx, c.cfg.DownloadDir, before, c.cfg.DownloadTimeout)
	if !ok {
		return c.abort(ctx, "no_file_"+label, models.ErrCodeDownloadTimeout, "no stabilized export file appeared", nil)
	}
	slog.Info("download confirmed", "target", label, "path", rec.Path, "bytes", rec.Size)
	return rec, nil
}

// abort records a diagnostic snapshot and returns the step's typed failure.
func (c *Cycle) abort(ctx context.Context, reason, code, msg string, cause error) (models.DownloadRecord, error) {
	slog.Warn("cycle aborted", "reason", reason, "code", code, "error", cause)
	c.rec.Capture(ctx, c.sess, reason)
	return models.DownloadRecord{}, models.NewFetchError(code, msg, cause)
}

// stepCode maps a step error to its failure class: an exhausted candidate
// list (or a click ladder that ran out of tiers) is recoverable by a fresh
// cycle; anything else is an unexpected session fault.
func stepCode(err error) string {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrCodeElementUnresolved
	}
	return models.ErrCodeUnexpectedFault
}

func (c *Cycle) openCategorySelector(ctx context.Context) error {
	cands := append(slices.Clone(roleCandidates[RoleCategorySelector]), categoryCoarseFallback)
	el, err := resolveOrdered(ctx, c.sess, cands, c.cfg.CandidateTimeout)
	if err != nil {
		return err
	}
	if !clickElement(el) {
		return models.NewFetchError(models.ErrCodeInteractionRejected, "category selector rejected all click tiers", models.ErrNotFound)
	}
	return nil
}

func (c *Cycle) chooseCategory(ctx context.Context, label string) error {
	el, err := resolveOrdered(ctx, c.sess, optionCandidates(label), c.cfg.CandidateTimeout)
	if errors.Is(err, models.ErrNotFound) {
		for _, syn := range synonymsFor(label) {
			slog.Info("retrying category via synonym", "label", label, "synonym", syn)
			el, err = resolveOrdered(ctx, c.sess, optionCandidates(syn), c.cfg.CandidateTimeout)
			if err == nil || !errors.Is(err, models.ErrNotFound) {
				break
			}
		}
	}
	if err != nil {
		return err
	}
	_ = el.ScrollIntoView() // dropdown panels clip items below the fold
	if !clickElement(el) {
		return models.NewFetchError(models.ErrCodeInteractionRejected, "category option rejected all click tiers", models.ErrNotFound)
	}
	return nil
}

func (c *Cycle) triggerRefresh(ctx context.Context) error {
	el, err := resolveOrdered(ctx, c.sess, roleCandidates[RoleRefreshControl], c.cfg.CandidateTimeout)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Warn("refresh control not found; relying on auto-refresh")
			return nil
		}
		return err
	}
	if !clickElement(el) {
		slog.Warn("refresh click rejected; relying on auto-refresh")
	}
	return nil
}

// triggerExport escalates through three tiers: the ranked candidate list, a
// goquery scan of the page markup for export-looking anchors, and finally a
// direct HTTP download of any absolute spreadsheet href.
func (c *Cycle) triggerExport(ctx context.Context) error {
	el, err := resolveOrdered(ctx, c.sess, roleCandidates[RoleExportControl], c.cfg.CandidateTimeout)
	if err == nil {
		if clickElement(el) {
			return nil
		}
		slog.Warn("export control rejected all click tiers; scanning page links")
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	markup, merr := c.sess.Markup(ctx)
	if merr != nil {
		return models.NewFetchError(models.ErrCodeUnexpectedFault, "page markup unavailable for export scan", merr)
	}

	for _, cand := range scanExportAnchors(markup) {
		linkEl, ferr := c.sess.Find(ctx, cand.Kind, cand.Expr, c.cfg.CandidateTimeout/4)
		if ferr != nil {
			if errors.Is(ferr, models.ErrNotFound) {
				continue
			}
			return ferr
		}
		_ = linkEl.ScrollIntoView()
		if clickElement(linkEl) {
			slog.Info("export triggered via scanned link", "kind", cand.Kind, "expr", cand.Expr)
			return nil
		}
	}

	for _, href := range collectExportHrefs(markup, c.cfg.URL) {
		cookie, cerr := c.sess.CookieHeader(ctx)
		if cerr != nil {
			cookie = ""
		}
		dest, derr := c.direct.fetch(ctx, href, cookie, c.cfg.DownloadDir)
		if derr != nil {
			slog.Warn("direct export fetch failed", "href", href, "error", derr)
			continue
		}
		slog.Info("export fetched directly", "href", href, "path", dest)
		return nil
	}

	return models.ErrNotFound
}

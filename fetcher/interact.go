package fetcher

import "time"

// clickSettle is the layout-settling pause between scrolling an element into
// view and retrying the click.
const clickSettle = 300 * time.Millisecond

// clickElement performs one logical click through a three-tier escalation:
// direct click, scroll-into-view plus settle plus direct retry, then a
// script-forced activation that bypasses occlusion checks entirely. The
// dashboard routinely renders overlays that swallow native pointer events
// even when the element is logically clickable.
//
// The outcome is a plain bool: callers re-verify success through subsequent
// state checks (a new dropdown panel, a file in the download directory)
// rather than branching on which tier failed.
func clickElement(el Element) bool {
	if el.Click() == nil {
		return true
	}
	_ = el.ScrollIntoView()
	time.Sleep(clickSettle)
	if el.Click() == nil {
		return true
	}
	return el.Activate() == nil
}

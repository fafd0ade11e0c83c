package fetcher

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/vahanfetch/models"
)

// exportKeywords are the label/title words that mark an anchor as a likely
// spreadsheet export trigger.
var exportKeywords = []string{"export", "excel", "download"}

// scanExportAnchors parses the rendered markup offline and derives locator
// candidates for anchors that look like spreadsheet exports. Used when every
// ranked export-control candidate failed: the page is searched wholesale and
// the hits are handed back to the resolver one by one.
func scanExportAnchors(markup string) []models.SelectorCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []models.SelectorCandidate
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		text := strings.TrimSpace(s.Text())
		if !looksLikeExport(href, text, s.AttrOr("title", "")) {
			return
		}
		if id, ok := s.Attr("id"); ok && id != "" {
			out = append(out, models.SelectorCandidate{Kind: models.ByID, Expr: id})
			return
		}
		// A quote inside the href would break out of the attribute selector.
		if href != "" && href != "#" && !strings.Contains(href, `"`) &&
			!strings.HasPrefix(strings.ToLower(href), "javascript:") {
			out = append(out, models.SelectorCandidate{Kind: models.ByCSS, Expr: fmt.Sprintf(`a[href="%s"]`, href)})
			return
		}
		if text != "" {
			out = append(out, models.SelectorCandidate{Kind: models.ByXPath, Expr: fmt.Sprintf("//a[normalize-space()='%s']", text)})
		}
	})
	return out
}

func looksLikeExport(href, text, title string) bool {
	h := strings.ToLower(href)
	if strings.Contains(h, ".xls") || strings.Contains(h, ".csv") {
		return true
	}
	for _, kw := range exportKeywords {
		if strings.Contains(strings.ToLower(text), kw) || strings.Contains(strings.ToLower(title), kw) {
			return true
		}
	}
	return false
}

// collectExportHrefs returns the absolute URLs of anchors pointing directly
// at a spreadsheet file, resolved against base. These feed the last-resort
// direct HTTP download.
func collectExportHrefs(markup, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		h := strings.ToLower(href)
		if !strings.Contains(h, ".xls") && !strings.Contains(h, ".csv") {
			return
		}
		if strings.HasPrefix(h, "javascript:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(u)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		out = append(out, abs.String())
	})
	return out
}

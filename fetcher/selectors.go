package fetcher

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/vahanfetch/models"
)

// Role names a logical UI element the export flow must locate. Each role has
// an ordered candidate list; the site changes often, so candidates go from
// specific known ids down to broad keyword matches.
type Role string

const (
	RoleCategorySelector Role = "category-selector"
	RoleRefreshControl   Role = "refresh-control"
	RoleExportControl    Role = "export-control"
)

var roleCandidates = map[Role][]models.SelectorCandidate{
	RoleCategorySelector: {
		{Kind: models.ByID, Expr: "yaxisVar_label"}, // older deployments
		{Kind: models.ByXPath, Expr: "//label[contains(@id,'yaxis') or contains(@for,'yaxis')]"},
		{Kind: models.ByXPath, Expr: "//span[contains(text(), 'Y Axis') or contains(., 'Y Axis')]"},
	},
	RoleRefreshControl: {
		{Kind: models.ByID, Expr: "j_idt61"}, // JSF auto-generated id, drifts per build
		{Kind: models.ByXPath, Expr: "//button[contains(., 'Refresh') or contains(@title,'Refresh')]"},
		{Kind: models.ByXPath, Expr: "//a[contains(., 'Refresh') or contains(@title,'Refresh')]"},
		{Kind: models.ByCSS, Expr: "button.ui-button"}, // generic fallback
	},
	RoleExportControl: {
		{Kind: models.ByID, Expr: "vchgroupTable:xls"},
		{Kind: models.ByXPath, Expr: "//a[contains(@id,'xls') or contains(@href,'.xls') or contains(.,'Export') or contains(.,'Excel')]"},
		{Kind: models.ByXPath, Expr: "//button[contains(.,'Excel') or contains(.,'Export')]"},
		{Kind: models.ByCSS, Expr: "a[download], a[href*='.xls'], a[href*='.xlsx']"},
	},
}

// categoryCoarseFallback is the last-ditch match for the category selector:
// any element whose id or for attribute carries the role keyword, or whose
// text mentions the axis label.
var categoryCoarseFallback = models.SelectorCandidate{
	Kind: models.ByXPath,
	Expr: "//*[contains(@id,'yaxis') or contains(@for,'yaxis') or contains(.,'Y Axis')]",
}

// categorySynonyms is the known dropdown vocabulary, in preference order.
// When a target label matches no list item exactly, the first synonym that
// contains the label as a substring wins. The match is deliberately fuzzy
// and ordered; refining it would silently change which export is fetched.
var categorySynonyms = []string{"Maker", "Vehicle Category", "Vehicle Type", "Maker Name", "Category"}

// optionCandidates builds the structural shapes a dropdown item renders as:
// data-label li, bare li/a/span with the exact text, and a ui-select
// descendant with the text anywhere inside.
func optionCandidates(label string) []models.SelectorCandidate {
	return []models.SelectorCandidate{
		{Kind: models.ByXPath, Expr: fmt.Sprintf("//li[@data-label='%s']", label)},
		{Kind: models.ByXPath, Expr: fmt.Sprintf("//li[normalize-space()='%s']", label)},
		{Kind: models.ByXPath, Expr: fmt.Sprintf("//a[normalize-space()='%s']", label)},
		{Kind: models.ByXPath, Expr: fmt.Sprintf("//span[normalize-space()='%s']", label)},
		{Kind: models.ByXPath, Expr: fmt.Sprintf("//div[contains(@class,'ui-select')]//li[contains(.,'%s')]", label)},
	}
}

// synonymsFor returns the synonyms containing label as a substring
// (case-insensitive), preserving list order and skipping label itself.
func synonymsFor(label string) []string {
	lower := strings.ToLower(label)
	var out []string
	for _, syn := range categorySynonyms {
		if syn == label {
			continue
		}
		if strings.Contains(strings.ToLower(syn), lower) {
			out = append(out, syn)
		}
	}
	return out
}

// ValidateCandidates parses every static CSS candidate expression so a typo
// in the tables fails at startup instead of mid-run.
func ValidateCandidates() error {
	return validateCSS(roleCandidates)
}

func validateCSS(tables map[Role][]models.SelectorCandidate) error {
	for role, cands := range tables {
		for _, c := range cands {
			if c.Kind != models.ByCSS {
				continue
			}
			if _, err := cascadia.ParseGroup(c.Expr); err != nil {
				return fmt.Errorf("role %s: invalid css candidate %q: %w", role, c.Expr, err)
			}
		}
	}
	return nil
}

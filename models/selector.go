package models

// SelectorKind identifies the locating strategy of a candidate.
type SelectorKind string

const (
	ByID    SelectorKind = "id"
	ByXPath SelectorKind = "xpath"
	ByCSS   SelectorKind = "css"
)

// SelectorCandidate is one ranked strategy for locating a UI role's element.
// Candidates are immutable; their priority is their position in the role's
// ordered list (lower index tried first).
type SelectorCandidate struct {
	Kind SelectorKind
	Expr string
}

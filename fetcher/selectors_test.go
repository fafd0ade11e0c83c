package fetcher

import (
	"strings"
	"testing"

	"github.com/use-agent/vahanfetch/models"
)

func TestSynonymsFor(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{
			name:  "maker expands to maker name",
			label: "Maker",
			want:  []string{"Maker Name"},
		},
		{
			name:  "category matches all category variants in list order",
			label: "Category",
			want:  []string{"Vehicle Category"},
		},
		{
			name:  "match is case-insensitive",
			label: "maker",
			want:  []string{"Maker", "Maker Name"},
		},
		{
			name:  "unknown label has no synonyms",
			label: "Fuel",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := synonymsFor(tt.label)
			if len(got) != len(tt.want) {
				t.Fatalf("synonymsFor(%q) = %v, want %v", tt.label, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("synonymsFor(%q)[%d] = %q, want %q", tt.label, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOptionCandidatesShapes(t *testing.T) {
	cands := optionCandidates("Vehicle Category")
	if len(cands) == 0 {
		t.Fatal("optionCandidates() returned no candidates")
	}
	if cands[0].Kind != models.ByXPath || !strings.Contains(cands[0].Expr, "data-label='Vehicle Category'") {
		t.Fatalf("first candidate = %+v, want the data-label shape ranked first", cands[0])
	}
	for i, c := range cands {
		if !strings.Contains(c.Expr, "Vehicle Category") {
			t.Errorf("candidate[%d] %q does not mention the label", i, c.Expr)
		}
	}
}

func TestValidateCandidates(t *testing.T) {
	if err := ValidateCandidates(); err != nil {
		t.Fatalf("ValidateCandidates() = %v, want nil for the built-in tables", err)
	}
}

func TestValidateCSSRejectsMalformed(t *testing.T) {
	bad := map[Role][]models.SelectorCandidate{
		"broken-role": {
			{Kind: models.ByXPath, Expr: "//ignored"}, // non-CSS kinds are skipped
			{Kind: models.ByCSS, Expr: "a[[href"},
		},
	}
	err := validateCSS(bad)
	if err == nil {
		t.Fatal("validateCSS() = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "broken-role") {
		t.Errorf("error %q does not name the offending role", err)
	}
}

package invoiceai

import (
	"strings"
	"testing"

	"github.com/ateliernord/finops_backend/models"
)

func TestScoreDefaults(t *testing.T) {
	longText := strings.Repeat("a", 120)
	fullDetails := InvoiceDetails{
		SupplierName: "Acme",
		Amount:       "1200.50",
		Date:         "2026-08-01",
		Description:  "steel beams",
	}

	cases := []struct {
		name string
		r    ParsedResponse
		want int
	}{
		{
			name: "empty response",
			r:    ParsedResponse{},
			want: 0,
		},
		{
			name: "text credit only",
			r:    ParsedResponse{ExtractedText: longText},
			want: 40,
		},
		{
			name: "short text earns nothing",
			r:    ParsedResponse{ExtractedText: "short"},
			want: 0,
		},
		{
			name: "fields only",
			r:    ParsedResponse{InvoiceDetails: InvoiceDetails{SupplierName: "Acme", Amount: "12"}},
			want: 10,
		},
		{
			name: "best match scaled",
			r: ParsedResponse{
				ExtractedText: longText,
				Matches:       []models.ProjectMatch{{ProjectName: "Atlas", Confidence: 50}},
			},
			want: 40 + 15,
		},
		{
			name: "everything capped at 100",
			r: ParsedResponse{
				ExtractedText:  longText,
				InvoiceDetails: fullDetails,
				Matches: []models.ProjectMatch{
					{ProjectName: "Atlas", Confidence: 100},
					{ProjectName: "Borealis", Confidence: 40},
				},
			},
			want: 95, // 40 + 20 + 30 + 5
		},
	}
	w := DefaultScoreWeights()
	for _, tc := range cases {
		if got := w.Score(tc.r); got != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestScoreCap(t *testing.T) {
	w := DefaultScoreWeights()
	w.TextCredit = 90
	r := ParsedResponse{
		ExtractedText: strings.Repeat("x", 200),
		Matches: []models.ProjectMatch{
			{ProjectName: "Atlas", Confidence: 100},
			{ProjectName: "Borealis", Confidence: 90},
		},
	}
	if got := w.Score(r); got != 100 {
		t.Fatalf("expected cap at 100, got %d", got)
	}
}

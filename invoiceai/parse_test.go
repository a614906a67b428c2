package invoiceai

import (
	"testing"
)

func TestParseModelResponsePlainObject(t *testing.T) {
	text := `{"extractedText": "Invoice 42 from Acme", "invoiceDetails": {"supplierName": "Acme", "amount": 1200.50, "date": "2026-08-01", "description": "steel beams"}, "projectMatches": [{"projectName": "Atlas", "confidence": 87, "matchedKeywords": ["steel"], "contextSnippets": ["beams for Atlas site"], "reasoning": "supplier delivers to Atlas"}]}`

	parsed := ParseModelResponse(text)
	if parsed.Malformed {
		t.Fatalf("expected well-formed response, got malformed")
	}
	if parsed.ExtractedText != "Invoice 42 from Acme" {
		t.Fatalf("unexpected extractedText: %q", parsed.ExtractedText)
	}
	if got := string(parsed.InvoiceDetails.Amount); got != "1200.50" && got != "1200.5" {
		t.Fatalf("unexpected amount: %q", got)
	}
	if len(parsed.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(parsed.Matches))
	}
	if parsed.Matches[0].ProjectName != "Atlas" || parsed.Matches[0].Confidence != 87 {
		t.Fatalf("unexpected match: %+v", parsed.Matches[0])
	}
}

func TestParseModelResponseFencedAndPadded(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{
			name: "markdown fence",
			text: "```json\n{\"extractedText\": \"x\", \"projectMatches\": []}\n```",
		},
		{
			name: "prose around object",
			text: "Here is the result you asked for:\n{\"extractedText\": \"x\", \"projectMatches\": []}\nLet me know if you need more.",
		},
		{
			name: "braces inside strings",
			text: `{"extractedText": "curly {not a block} done", "projectMatches": []}`,
		},
	}
	for _, tc := range cases {
		parsed := ParseModelResponse(tc.text)
		if parsed.Malformed {
			t.Fatalf("%s: expected well-formed response, got malformed", tc.name)
		}
		if len(parsed.Matches) != 0 {
			t.Fatalf("%s: expected no matches, got %d", tc.name, len(parsed.Matches))
		}
	}
}

func TestParseModelResponseMalformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "no json at all", text: "I could not read the document, sorry."},
		{name: "unbalanced object", text: `{"extractedText": "x", "projectMatches": [`},
		{name: "invalid json", text: `{extractedText: missing quotes}`},
	}
	for _, tc := range cases {
		parsed := ParseModelResponse(tc.text)
		if !parsed.Malformed {
			t.Fatalf("%s: expected malformed", tc.name)
		}
		if parsed.ExtractedText != tc.text {
			t.Fatalf("%s: raw text not preserved", tc.name)
		}
		if len(parsed.Matches) != 0 {
			t.Fatalf("%s: expected no matches", tc.name)
		}
	}
}

func TestParseModelResponseNormalization(t *testing.T) {
	text := `{"extractedText": "x", "projectMatches": [
		{"projectName": "Low", "confidence": -12},
		{"projectName": "", "confidence": 99},
		{"projectName": "High", "confidence": 150.4},
		{"projectName": "Mid", "confidence": 55.6}
	]}`

	parsed := ParseModelResponse(text)
	if parsed.Malformed {
		t.Fatalf("expected well-formed response")
	}
	if len(parsed.Matches) != 3 {
		t.Fatalf("expected empty-named match dropped, got %d matches", len(parsed.Matches))
	}
	// Sorted best-first with confidences clamped to [0,100].
	wantNames := []string{"High", "Mid", "Low"}
	wantConf := []int{100, 56, 0}
	for i, m := range parsed.Matches {
		if m.ProjectName != wantNames[i] || m.Confidence != wantConf[i] {
			t.Fatalf("match %d: got %s/%d, want %s/%d", i, m.ProjectName, m.Confidence, wantNames[i], wantConf[i])
		}
		if m.MatchedKeywords == nil || m.ContextSnippets == nil {
			t.Fatalf("match %d: nil slices should be normalized to empty", i)
		}
	}
}

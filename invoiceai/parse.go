package invoiceai

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/ateliernord/finops_backend/models"
)

// ParsedResponse is the schema-validated decode of one model reply.
// Malformed reports whether the reply carried no usable JSON object; in
// that case ExtractedText holds the raw response and Matches is empty,
// so a bad reply degrades instead of failing the invoice.
type ParsedResponse struct {
	ExtractedText  string
	InvoiceDetails InvoiceDetails
	Matches        []models.ProjectMatch
	Malformed      bool
}

type rawModelResponse struct {
	ExtractedText  string            `json:"extractedText"`
	InvoiceDetails InvoiceDetails    `json:"invoiceDetails"`
	ProjectMatches []rawProjectMatch `json:"projectMatches"`
}

type rawProjectMatch struct {
	ProjectId       int      `json:"projectId"`
	ProjectName     string   `json:"projectName"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matchedKeywords"`
	ContextSnippets []string `json:"contextSnippets"`
	Reasoning       string   `json:"reasoning"`
}

// ParseModelResponse locates the first balanced {...} span in the model's
// free-text reply (markdown fences tolerated), decodes it and normalizes
// match confidences to sorted integers in [0,100].
func ParseModelResponse(text string) ParsedResponse {
	span := firstJSONObject(text)
	if span == "" {
		return ParsedResponse{ExtractedText: text, Malformed: true}
	}

	var raw rawModelResponse
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return ParsedResponse{ExtractedText: text, Malformed: true}
	}

	matches := make([]models.ProjectMatch, 0, len(raw.ProjectMatches))
	for _, m := range raw.ProjectMatches {
		if strings.TrimSpace(m.ProjectName) == "" {
			continue
		}
		matches = append(matches, models.ProjectMatch{
			ProjectId:       m.ProjectId,
			ProjectName:     strings.TrimSpace(m.ProjectName),
			Confidence:      clampConfidence(m.Confidence),
			MatchedKeywords: emptyIfNil(m.MatchedKeywords),
			ContextSnippets: emptyIfNil(m.ContextSnippets),
			Reasoning:       m.Reasoning,
		})
	}
	// The model is asked to rank best-first, but that is not trusted.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	return ParsedResponse{
		ExtractedText:  raw.ExtractedText,
		InvoiceDetails: raw.InvoiceDetails,
		Matches:        matches,
	}
}

func clampConfidence(c float64) int {
	rounded := int(math.Round(c))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// firstJSONObject returns the first balanced top-level JSON object in text,
// ignoring braces inside string literals.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

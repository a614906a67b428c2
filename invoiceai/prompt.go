package invoiceai

import (
	"fmt"
	"strings"

	"github.com/ateliernord/finops_backend/models"
)

// BuildPrompt assembles the single textual prompt for one invoice: the
// fixed extraction + matching instruction, the required JSON response
// shape, and the candidate project list as matching context.
func BuildPrompt(projects []models.Project) string {
	var projectLines strings.Builder
	for _, p := range projects {
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			desc = "(no description)"
		}
		projectLines.WriteString(fmt.Sprintf("- %s: %s\n", p.Name, desc))
	}
	if projectLines.Len() == 0 {
		projectLines.WriteString("(no active projects)\n")
	}

	return fmt.Sprintf(`You analyze a supplier invoice document for a project-cost dashboard.

Tasks:
1. Extract the full readable text from the document.
2. Extract invoice metadata: supplier name, total amount, invoice date, and a short description of the billed goods or services.
3. Match the invoice against the candidate projects below. Use supplier name, billed items, delivery addresses and any project references in the document. Rank matches best first and give each a confidence between 0 and 100. Only include projects that plausibly relate to the invoice; an empty list is a valid answer.

Candidate projects:
%s
Respond with a single JSON object and nothing else (no markdown):
{"extractedText": "...", "invoiceDetails": {"supplierName": "...", "amount": "...", "date": "...", "description": "..."}, "projectMatches": [{"projectName": "...", "confidence": 87, "matchedKeywords": ["..."], "contextSnippets": ["..."], "reasoning": "..."}]}`, projectLines.String())
}

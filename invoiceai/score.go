package invoiceai

// ScoreWeights are the composite-confidence policy constants. They are
// policy, not a law of nature: the defaults mirror the observed production
// weighting but every deployment may tune them.
type ScoreWeights struct {
	// TextCredit is granted when the extracted text is at least MinTextLen.
	TextCredit int
	MinTextLen int
	// FieldCredit is granted per populated invoice-metadata field.
	FieldCredit int
	// BestMatchMax scales linearly with the best match's own confidence.
	BestMatchMax int
	// MultiMatchBonus is granted when more than one candidate matched.
	MultiMatchBonus int
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		TextCredit:      40,
		MinTextLen:      100,
		FieldCredit:     5,
		BestMatchMax:    30,
		MultiMatchBonus: 5,
	}
}

// Score computes the invoice's overall AI confidence. It is deliberately
// independent of any single match's confidence: a strong best match on top
// of a thin extraction scores lower than the match alone would suggest.
func (w ScoreWeights) Score(r ParsedResponse) int {
	score := 0
	if len(r.ExtractedText) >= w.MinTextLen {
		score += w.TextCredit
	}
	score += w.FieldCredit * r.InvoiceDetails.populatedFields()
	if len(r.Matches) > 0 {
		score += w.BestMatchMax * r.Matches[0].Confidence / 100
	}
	if len(r.Matches) > 1 {
		score += w.MultiMatchBonus
	}
	if score > 100 {
		score = 100
	}
	return score
}

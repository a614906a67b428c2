package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectMatch is one ranked candidate from the document model, best match
// first in ClassificationResult.ProjectMatchesJSON.
type ProjectMatch struct {
	ProjectId       int      `json:"projectId,omitempty"`
	ProjectName     string   `json:"projectName"`
	Confidence      int      `json:"confidence"`
	MatchedKeywords []string `json:"matchedKeywords"`
	ContextSnippets []string `json:"contextSnippets"`
	Reasoning       string   `json:"reasoning"`
}

// ClassificationResult holds one logical classification per supplier
// invoice. Re-classification overwrites the previous row.
type ClassificationResult struct {
	ID                 uint             `gorm:"primary_key" json:"id"`
	SupplierInvoiceId  int              `gorm:"uniqueIndex;not null" json:"supplier_invoice_id"`
	ExtractedText      string           `gorm:"type:text" json:"extracted_text"`
	ConfidenceScore    int              `json:"confidence_score"`
	ProjectMatchesJSON []byte           `gorm:"type:json" json:"project_matches"`
	ProcessingStatus   ProcessingStatus `gorm:"size:20;not null" json:"processing_status"`
	ProcessingTimeMs   int64            `json:"processing_time_ms"`
	ErrorMessage       string           `gorm:"type:text" json:"error_message"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ClassificationResult) Matches() []ProjectMatch {
	if len(r.ProjectMatchesJSON) == 0 {
		return nil
	}
	var matches []ProjectMatch
	if err := json.Unmarshal(r.ProjectMatchesJSON, &matches); err != nil {
		return nil
	}
	return matches
}

func (r *ClassificationResult) SetMatches(matches []ProjectMatch) {
	if matches == nil {
		matches = []ProjectMatch{}
	}
	b, _ := json.Marshal(matches)
	r.ProjectMatchesJSON = b
}

// UpsertClassificationResult persists the result keyed by invoice id, so a
// re-classification replaces the earlier attempt instead of appending.
func UpsertClassificationResult(db *gorm.DB, result *ClassificationResult) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"extracted_text", "confidence_score", "project_matches_json",
			"processing_status", "processing_time_ms", "error_message", "updated_at",
		}),
	}).Create(result).Error
}

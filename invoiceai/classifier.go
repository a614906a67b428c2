package invoiceai

import (
	"context"
	"time"

	"github.com/ateliernord/finops_backend/config"
	"github.com/ateliernord/finops_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DocumentRef locates the invoice document for one classification attempt.
type DocumentRef struct {
	URL    string
	Base64 string
}

// Classifier runs the document-understanding step of the pipeline: prompt,
// rate-limited model call, parse, composite scoring, persisted result.
type Classifier struct {
	Queue   *CallQueue
	Invoker ModelInvoker
	Logger  *logrus.Logger
	Weights ScoreWeights
}

func NewClassifier(queue *CallQueue, invoker ModelInvoker, logger *logrus.Logger) *Classifier {
	return &Classifier{
		Queue:   queue,
		Invoker: invoker,
		Logger:  logger,
		Weights: DefaultScoreWeights(),
	}
}

// Classify submits one invoice document and persists the outcome. The
// ClassificationResult row is written (upsert by invoice id) whether the
// call succeeded, produced unusable JSON, or failed outright; only the
// returned error distinguishes a failed call for the caller. A failure here
// never aborts the surrounding sync run.
func (c *Classifier) Classify(ctx context.Context, db *gorm.DB, invoice *models.SupplierInvoice, doc DocumentRef, projects []models.Project) (*models.ClassificationResult, error) {
	started := time.Now()

	req := ModelRequest{
		Prompt:         BuildPrompt(projects),
		DocumentURL:    doc.URL,
		DocumentBase64: doc.Base64,
	}

	text, err := c.Queue.Enqueue(ctx, func(callCtx context.Context) (string, error) {
		return c.Invoker.Invoke(callCtx, req)
	})
	if err != nil {
		result := &models.ClassificationResult{
			SupplierInvoiceId: invoice.ID,
			ProcessingStatus:  models.ProcessingStatusFailed,
			ProcessingTimeMs:  time.Since(started).Milliseconds(),
			ErrorMessage:      err.Error(),
		}
		result.SetMatches(nil)
		if persistErr := models.UpsertClassificationResult(db, result); persistErr != nil {
			config.LogError(c.Logger, "classifier.go", "Classify", "PersistFailedResult", invoice.ID, persistErr)
		}
		return result, err
	}

	parsed := ParseModelResponse(text)
	status := models.ProcessingStatusSuccess
	if parsed.Malformed {
		status = models.ProcessingStatusPartial
	}

	result := &models.ClassificationResult{
		SupplierInvoiceId: invoice.ID,
		ExtractedText:     parsed.ExtractedText,
		ConfidenceScore:   c.Weights.Score(parsed),
		ProcessingStatus:  status,
		ProcessingTimeMs:  time.Since(started).Milliseconds(),
	}
	result.SetMatches(parsed.Matches)

	if err := models.UpsertClassificationResult(db, result); err != nil {
		return nil, err
	}
	return result, nil
}

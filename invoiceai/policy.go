package invoiceai

import (
	"errors"
	"time"

	"github.com/ateliernord/finops_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PolicyThresholds are the confidence cut-offs of the assignment decision
// table. Defaults mirror production policy (80 auto-assign, 60 review).
type PolicyThresholds struct {
	AutoAssign   int
	MediumReview int
}

func DefaultThresholds() PolicyThresholds {
	return PolicyThresholds{AutoAssign: 80, MediumReview: 60}
}

// ApplyAssignmentPolicy turns a successful classification into the
// invoice's next state. On the best match's confidence c:
//
//	c >= AutoAssign    auto-assign 100% of the invoice to the matched project
//	c >= MediumReview  flag medium-confidence, no assignment
//	otherwise          flag low-confidence
//	no matches at all  mark no-match
//
// The assignment insert and the status update run in one transaction so a
// failed status write cannot leave a dangling assignment.
func ApplyAssignmentPolicy(db *gorm.DB, logger *logrus.Logger, invoice *models.SupplierInvoice, result *models.ClassificationResult, assignedBy string, th PolicyThresholds) error {
	matches := result.Matches()
	if len(matches) == 0 {
		return invoice.SetStatus(db, models.InvoiceStatusNoMatch, false)
	}

	best := matches[0]
	switch {
	case best.Confidence >= th.AutoAssign:
		project, err := models.FindProjectByName(db, best.ProjectName)
		if err != nil {
			if errors.Is(err, models.ErrProjectNotFound) {
				// Never silently mis-assign: leave the invoice in its
				// classified, unassigned state for manual review.
				logger.WithFields(logrus.Fields{
					"module":      "invoiceai",
					"invoiceId":   invoice.ID,
					"projectName": best.ProjectName,
					"confidence":  best.Confidence,
				}).Warn("auto-assign skipped: matched project name not found")
				return nil
			}
			return err
		}
		return db.Transaction(func(tx *gorm.DB) error {
			assignment := models.ProjectAssignment{
				SupplierInvoiceId: invoice.ID,
				ProjectId:         project.ID,
				AmountAssigned:    invoice.AmountTotal,
				Percentage:        decimal.NewFromInt(100),
				AssignmentType:    models.AssignmentTypeAIAutoAssign,
				AssignedBy:        assignedBy,
				AssignedAt:        time.Now(),
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
			return invoice.SetStatus(tx, models.InvoiceStatusAssigned, false)
		})
	case best.Confidence >= th.MediumReview:
		return invoice.SetStatus(db, models.InvoiceStatusMediumConfidence, false)
	default:
		return invoice.SetStatus(db, models.InvoiceStatusLowConfidence, false)
	}
}

package invoiceai

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ateliernord/finops_backend/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps every session on the same in-memory store.
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedInvoice(t *testing.T, db *gorm.DB, externalId string) *models.SupplierInvoice {
	t.Helper()
	inv := models.SupplierInvoice{
		ExternalId:   externalId,
		SupplierName: "Acme Steel",
		SupplierIban: "DE02120300000000202051",
		AmountTotal:  decimal.NewFromFloat(1200.50),
		Currency:     "EUR",
		Status:       models.InvoiceStatusPendingAssignment,
		AttachmentId: "att-1",
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return &inv
}

func resultWithMatch(invoiceId, confidence int, projectName string) *models.ClassificationResult {
	r := &models.ClassificationResult{
		SupplierInvoiceId: invoiceId,
		ProcessingStatus:  models.ProcessingStatusSuccess,
	}
	if projectName == "" {
		r.SetMatches(nil)
	} else {
		r.SetMatches([]models.ProjectMatch{{ProjectName: projectName, Confidence: confidence}})
	}
	return r
}

func TestApplyAssignmentPolicyAutoAssign(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&models.Project{Name: "Atlas", IsActive: true}).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	inv := seedInvoice(t, db, "ext-1")

	err := ApplyAssignmentPolicy(db, logrus.New(), inv, resultWithMatch(inv.ID, 95, "Atlas"), "model-x", DefaultThresholds())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if inv.Status != models.InvoiceStatusAssigned || !inv.IsProcessed {
		t.Fatalf("expected assigned+processed, got %s processed=%v", inv.Status, inv.IsProcessed)
	}

	var assignments []models.ProjectAssignment
	if err := db.Where("supplier_invoice_id = ?", inv.ID).Find(&assignments).Error; err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	a := assignments[0]
	if !a.AmountAssigned.Equal(inv.AmountTotal) {
		t.Fatalf("assignment amount %s != invoice total %s", a.AmountAssigned, inv.AmountTotal)
	}
	if !a.Percentage.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100%% assignment, got %s", a.Percentage)
	}
	if a.AssignmentType != models.AssignmentTypeAIAutoAssign || a.AssignedBy != "model-x" {
		t.Fatalf("unexpected assignment attribution: %+v", a)
	}
}

func TestApplyAssignmentPolicyConfidenceTable(t *testing.T) {
	cases := []struct {
		name       string
		confidence int
		project    string
		want       models.InvoiceStatus
	}{
		{name: "medium", confidence: 70, project: "Atlas", want: models.InvoiceStatusMediumConfidence},
		{name: "low", confidence: 40, project: "Atlas", want: models.InvoiceStatusLowConfidence},
		{name: "no matches", confidence: 0, project: "", want: models.InvoiceStatusNoMatch},
	}
	for _, tc := range cases {
		db := openTestDB(t)
		if err := db.Create(&models.Project{Name: "Atlas", IsActive: true}).Error; err != nil {
			t.Fatalf("%s: seed project: %v", tc.name, err)
		}
		inv := seedInvoice(t, db, "ext-"+tc.name)

		err := ApplyAssignmentPolicy(db, logrus.New(), inv, resultWithMatch(inv.ID, tc.confidence, tc.project), "model-x", DefaultThresholds())
		if err != nil {
			t.Fatalf("%s: policy: %v", tc.name, err)
		}
		if inv.Status != tc.want {
			t.Fatalf("%s: got status %s, want %s", tc.name, inv.Status, tc.want)
		}
		if !inv.IsProcessed {
			t.Fatalf("%s: invoice should be marked processed", tc.name)
		}
		var assignments int64
		db.Model(&models.ProjectAssignment{}).Where("supplier_invoice_id = ?", inv.ID).Count(&assignments)
		if assignments != 0 {
			t.Fatalf("%s: no assignment expected, got %d", tc.name, assignments)
		}
	}
}

func TestApplyAssignmentPolicyRetriggerSameBand(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&models.Project{Name: "Atlas", IsActive: true}).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	inv := seedInvoice(t, db, "ext-retrigger")

	// A re-classification landing in the same confidence band must be a
	// no-op, not a transition error.
	for attempt := 1; attempt <= 2; attempt++ {
		err := ApplyAssignmentPolicy(db, logrus.New(), inv, resultWithMatch(inv.ID, 70, "Atlas"), "model-x", DefaultThresholds())
		if err != nil {
			t.Fatalf("attempt %d: policy: %v", attempt, err)
		}
		if inv.Status != models.InvoiceStatusMediumConfidence {
			t.Fatalf("attempt %d: got status %s", attempt, inv.Status)
		}
	}

	// Same for the no-match band.
	inv2 := seedInvoice(t, db, "ext-retrigger-2")
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ApplyAssignmentPolicy(db, logrus.New(), inv2, resultWithMatch(inv2.ID, 0, ""), "model-x", DefaultThresholds()); err != nil {
			t.Fatalf("no-match attempt %d: policy: %v", attempt, err)
		}
	}
	if inv2.Status != models.InvoiceStatusNoMatch {
		t.Fatalf("got status %s, want no-match", inv2.Status)
	}
}

func TestApplyAssignmentPolicyUnknownProjectName(t *testing.T) {
	db := openTestDB(t)
	inv := seedInvoice(t, db, "ext-unknown")

	err := ApplyAssignmentPolicy(db, logrus.New(), inv, resultWithMatch(inv.ID, 95, "Phantom"), "model-x", DefaultThresholds())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	// The invoice stays put for manual review; nothing was assigned.
	if inv.Status != models.InvoiceStatusPendingAssignment {
		t.Fatalf("expected pending invoice, got %s", inv.Status)
	}
	var assignments int64
	db.Model(&models.ProjectAssignment{}).Count(&assignments)
	if assignments != 0 {
		t.Fatalf("no assignment expected, got %d", assignments)
	}
}

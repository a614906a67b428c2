package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SupplierInvoice mirrors a Qonto supplier invoice. SupplierIban doubles as
// the project-partner eligibility marker: invoices from suppliers without an
// IBAN on file are general expenses and are never persisted here.
type SupplierInvoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ExternalId    string          `gorm:"uniqueIndex;size:128;not null" json:"external_id"`
	SupplierName  string          `gorm:"size:255" json:"supplier_name"`
	SupplierIban  string          `gorm:"size:50" json:"supplier_iban"`
	InvoiceNumber string          `gorm:"size:100" json:"invoice_number"`
	AmountTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_total"`
	AmountNet     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_net"`
	AmountVat     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_vat"`
	Currency      string          `gorm:"size:10" json:"currency"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	Status        InvoiceStatus   `gorm:"size:30;not null;default:'pending-assignment'" json:"status"`
	IsProcessed   bool            `gorm:"default:false" json:"is_processed"`
	AttachmentId  string          `gorm:"size:128" json:"attachment_id"`
	LastSyncAt    *time.Time      `json:"last_sync_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSupplierInvoice(db *gorm.DB, id int) (*SupplierInvoice, error) {
	var inv SupplierInvoice
	if err := db.Where("id = ?", id).Take(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// SetStatus mutates the invoice status after validating the transition
// table, marking the invoice processed in the same update.
func (inv *SupplierInvoice) SetStatus(db *gorm.DB, next InvoiceStatus, manual bool) error {
	if !next.Valid() {
		return errors.New("unknown invoice status: " + string(next))
	}
	if !inv.Status.CanTransition(next, manual) {
		return TransitionError(inv.Status, next)
	}
	if err := db.Model(inv).Updates(map[string]interface{}{
		"status":       next,
		"is_processed": true,
	}).Error; err != nil {
		return err
	}
	inv.Status = next
	inv.IsProcessed = true
	return nil
}

// Classifiable reports whether the pipeline should submit this invoice to
// the document model. Assigned and non-project invoices are terminal.
func (inv *SupplierInvoice) Classifiable() bool {
	return inv.AttachmentId != "" && !inv.Status.Terminal()
}
